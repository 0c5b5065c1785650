package domain

// TollPoint is immutable reference data describing a toll gantry.
type TollPoint struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	IsActive    bool    `json:"is_active"`
}
