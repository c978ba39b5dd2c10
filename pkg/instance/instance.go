package instance

import "github.com/angelmondragon/assettrack-backend/pkg/env"

// GetID names the running process in logs. ASSETTRACK_INSTANCE_ID wins, then
// the container hostname.
func GetID() string {
	return env.Get("ASSETTRACK_INSTANCE_ID", env.Get("HOSTNAME", "local"))
}
