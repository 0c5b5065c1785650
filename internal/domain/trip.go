package domain

import "time"

// LicensePlate identifies the vehicle a trip was charged to.
type LicensePlate struct {
	Value           string `json:"value"`
	VehicleCategory string `json:"vehicleCategory"`
	IsDefault       bool   `json:"default"`
}

// Trip is a completed toll trip reported by the mTolling API.
// TripNumber is the identity key.
type Trip struct {
	TripNumber           int64        `json:"tripNumber"`
	TotalDistance        float64      `json:"totalDistance"`
	TotalDurationSeconds int64        `json:"totalDuration"`
	Highways             string       `json:"highways"`
	StartDate            int64        `json:"startDate"`
	TotalCost            float64      `json:"totalCost"`
	LicensePlate         LicensePlate `json:"licensePlate"`
}

// TripEvent is emitted once for every trip that newly appears between two polls.
type TripEvent struct {
	ID         string    `json:"id"`
	TripNumber int64     `json:"trip_number"`
	Highways   string    `json:"highways"`
	TotalCost  float64   `json:"total_cost"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

// PollerStatus is a point-in-time view of the trip poller.
type PollerStatus struct {
	Running    bool      `json:"running"`
	LastPollAt time.Time `json:"last_poll_at"`
	LastError  string    `json:"last_error,omitempty"`
	KnownTrips int       `json:"known_trips"`
}
