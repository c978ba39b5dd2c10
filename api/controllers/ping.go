package controllers

import (
	"net/http"

	"github.com/angelmondragon/assettrack-backend/api/middleware"
	"github.com/angelmondragon/assettrack-backend/api/responses"
	"github.com/angelmondragon/assettrack-backend/pkg/instance"
)

type pingResponse struct {
	Status      string `json:"status"`
	Instance    string `json:"instance"`
	PrincipalID string `json:"principalId,omitempty"`
	Role        string `json:"role,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

// PublicPing answers without credentials; load balancers and smoke tests use it.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingResponse{Status: "ok", Instance: instance.GetID()})
	}
}

// PrivatePing echoes what the auth middleware resolved from the bearer
// token, which is handy when debugging a client's session.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		responses.WriteSuccess(w, pingResponse{
			Status:      "ok",
			Instance:    instance.GetID(),
			PrincipalID: middleware.UserIDFromContext(ctx),
			Role:        middleware.RoleFromContext(ctx),
			SessionID:   middleware.SessionIDFromContext(ctx),
		})
	}
}
