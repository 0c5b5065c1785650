package domain

// Settings are the user-controlled feature flags.
type Settings struct {
	AutoStartEnabled      bool `json:"auto_start_enabled"`
	TripMonitoringEnabled bool `json:"trip_monitoring_enabled"`
}
