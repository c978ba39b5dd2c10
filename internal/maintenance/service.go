package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/assettrack-backend/internal/authz"
	"github.com/angelmondragon/assettrack-backend/pkg/db/models"
	"github.com/angelmondragon/assettrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox"
	"github.com/angelmondragon/assettrack-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const noteResolved = "maintenance resolved"

// Service tracks reported issues.
type Service interface {
	Report(ctx context.Context, actorID uuid.UUID, req ReportRequest) (*RequestDTO, error)
	UpdateStatus(ctx context.Context, actorID, requestID uuid.UUID, req UpdateRequest) (*RequestDTO, error)
	ListMine(ctx context.Context, actorID uuid.UUID) ([]RequestDTO, error)
	ListAll(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]RequestDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemRegistry interface {
	LoadTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.Item, error)
	ChangeStatusTx(ctx context.Context, tx *gorm.DB, actor *authz.Principal, itemID uuid.UUID, target enums.ItemStatus, note string) error
}

type eventRecorder interface {
	IncEvent(event string)
}

type service struct {
	repo    *Repository
	tx      txRunner
	gate    authz.Authorizer
	items   itemRegistry
	emitter outbox.Emitter
	metrics eventRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the tracker dependencies.
type ServiceParams struct {
	Repo    *Repository
	DB      txRunner
	Gate    authz.Authorizer
	Items   itemRegistry
	Emitter outbox.Emitter
	Metrics eventRecorder
	Logger  *logger.Logger
	Clock   func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("maintenance repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Gate == nil:
		return nil, fmt.Errorf("authorization gate required")
	case params.Items == nil:
		return nil, fmt.Errorf("item registry required")
	}
	emitter := params.Emitter
	if emitter == nil {
		emitter = outbox.NopEmitter{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.DB,
		gate:    params.Gate,
		items:   params.Items,
		emitter: emitter,
		metrics: params.Metrics,
		logg:    logg,
		now:     clock,
	}, nil
}

// Report files an issue. Any item may be reported whatever its status.
func (s *service) Report(ctx context.Context, actorID uuid.UUID, req ReportRequest) (*RequestDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapReportIssue)
	if err != nil {
		return nil, err
	}
	if req.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itemId is required")
	}
	priority := enums.MaintenancePriorityLow
	if strings.TrimSpace(req.Priority) != "" {
		if priority, err = enums.ParseMaintenancePriority(req.Priority); err != nil {
			return nil, pkgerrors.Validation(err)
		}
	}

	request := &models.MaintenanceRequest{
		ItemID:      req.ItemID,
		RequestedBy: actor.ID,
		Priority:    priority,
		Status:      enums.MaintenanceStatusOpen,
		Notes:       strings.TrimSpace(req.Notes),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.items.LoadTx(ctx, tx, req.ItemID); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create maintenance request")
		}
		return s.emit(ctx, tx, actor, enums.EventMaintenanceReported, request.ID, payloads.MaintenanceReportedEvent{
			RequestID:   request.ID,
			ItemID:      request.ItemID,
			RequestedBy: actor.ID,
			Priority:    priority,
		})
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, request, string(enums.EventMaintenanceReported))
	dto := toDTO(request)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID, requestID uuid.UUID, req UpdateRequest) (*RequestDTO, error) {
	actor, err := s.gate.Authorize(ctx, actorID, enums.CapManageMaintenance)
	if err != nil {
		return nil, err
	}
	var target *enums.MaintenanceStatus
	if req.Status != nil {
		parsed, err := enums.ParseMaintenanceStatus(*req.Status)
		if err != nil {
			return nil, pkgerrors.Validation(err)
		}
		target = &parsed
	}
	var itemStatus *enums.ItemStatus
	if req.ItemStatus != nil {
		parsed, err := enums.ParseItemStatus(*req.ItemStatus)
		if err != nil {
			return nil, pkgerrors.Validation(err)
		}
		itemStatus = &parsed
	}

	var updated *models.MaintenanceRequest
	var changedFrom *enums.MaintenanceStatus
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, requestID)
		if err != nil {
			return notFoundOrInternal(err, "load maintenance request")
		}

		updates := map[string]any{}
		if target != nil && *target != current.Status {
			if !current.Status.CanTransitionTo(*target) {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "maintenance status cannot move backwards").
					WithDetails(map[string]any{"from": current.Status, "to": *target})
			}
			updates["status"] = *target
			if *target == enums.MaintenanceStatusResolved {
				updates["resolved_at"] = s.now().UTC()
			}
			from := current.Status
			changedFrom = &from
		}
		if req.DueDate.Set {
			if current.Status == enums.MaintenanceStatusResolved {
				return pkgerrors.New(pkgerrors.CodeValidation, "resolved requests cannot be rescheduled")
			}
			if req.DueDate.Value == nil || req.DueDate.Value.IsZero() {
				updates["due_date"] = nil
			} else {
				updates["due_date"] = req.DueDate.Value.Time
			}
		}
		resolving := changedFrom != nil && *target == enums.MaintenanceStatusResolved
		if itemStatus != nil && !resolving {
			return pkgerrors.New(pkgerrors.CodeValidation, "itemStatus applies only when resolving")
		}

		if err := repo.Update(ctx, current.ID, updates); err != nil {
			return notFoundOrInternal(err, "update maintenance request")
		}
		if itemStatus != nil {
			if err := s.items.ChangeStatusTx(ctx, tx, actor, current.ItemID, *itemStatus, noteResolved); err != nil {
				return err
			}
		}
		if changedFrom != nil {
			if err := s.emit(ctx, tx, actor, enums.EventMaintenanceStatusChanged, current.ID, payloads.MaintenanceStatusChangedEvent{
				RequestID:  current.ID,
				ItemID:     current.ItemID,
				FromStatus: *changedFrom,
				ToStatus:   *target,
			}); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload maintenance request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changedFrom != nil {
		s.record(ctx, actor, updated, string(enums.EventMaintenanceStatusChanged))
	}
	dto := toDTO(updated)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, actorID uuid.UUID) ([]RequestDTO, error) {
	actor, err := s.gate.Authenticate(ctx, actorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, ListFilter{}, &actor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list maintenance requests")
	}
	return toDTOs(rows), nil
}

func (s *service) ListAll(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]RequestDTO, error) {
	if _, err := s.gate.Authorize(ctx, actorID, enums.CapManageMaintenance); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, filter, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list maintenance requests")
	}
	return toDTOs(rows), nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor *authz.Principal, eventType enums.OutboxEventType, requestID uuid.UUID, data any) error {
	err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateMaintenanceRequest,
		AggregateID:   requestID,
		Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue "+string(eventType))
	}
	return nil
}

func (s *service) record(ctx context.Context, actor *authz.Principal, m *models.MaintenanceRequest, event string) {
	if s.metrics != nil {
		s.metrics.IncEvent(event)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id":   actor.ID.String(),
		"request_id": m.ID.String(),
		"item_id":    m.ItemID.String(),
		"status":     m.Status,
	})
	s.logg.Info(logCtx, strings.Replace(event, "_", ".", 1))
}

func notFoundOrInternal(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "maintenance request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
