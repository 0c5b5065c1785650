package domain

// LocationFix is a single positioning reading.
type LocationFix struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	AccuracyMeters  float64 `json:"accuracy"`
	TimestampMillis int64   `json:"timestamp"`
	Speed           float64 `json:"speed"`
	Bearing         float64 `json:"bearing"`
	Altitude        float64 `json:"altitude"`
	Provider        string  `json:"provider"`
}

// IsValid rejects default or uninitialised fixes.
func (f LocationFix) IsValid() bool {
	return f.Latitude != 0 && f.Longitude != 0 && f.AccuracyMeters > 0
}

// TrackerState represents the lifecycle state of the location tracker.
type TrackerState string

const (
	TrackerStateStopped  TrackerState = "STOPPED"
	TrackerStateStarting TrackerState = "STARTING"
	TrackerStateActive   TrackerState = "ACTIVE"
)
