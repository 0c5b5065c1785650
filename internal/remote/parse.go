package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"mtolling/internal/domain"
	"mtolling/internal/network"
)

// ErrNoTokenInResponse is returned when a login response carries none of the token fields.
var ErrNoTokenInResponse = errors.New("no token in response")

// tokenFields are checked in order; the first non-empty value wins.
var tokenFields = []string{"authToken", "token", "access_token"}

// serviceAreaMarkers identify rest areas that are listed with the tolls but are not toll points.
var serviceAreaMarkers = []string{"área de serviço", "serviço"}

// ExtractToken returns the session token from a login response body.
func ExtractToken(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", network.ParseError(errors.New("login response is not valid json"))
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return "", network.ParseError(errors.New("login response is not an object"))
	}

	for _, field := range tokenFields {
		v := parsed.Get(field)
		if v.Type == gjson.String && v.Str != "" {
			return v.Str, nil
		}
	}
	return "", network.ParseError(ErrNoTokenInResponse)
}

// ParseTolls decodes the tollsList array, dropping service areas.
// Any malformed entry fails the whole batch.
func ParseTolls(body []byte) ([]domain.TollPoint, error) {
	if !gjson.ValidBytes(body) {
		return nil, network.ParseError(errors.New("tolls response is not valid json"))
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, network.ParseError(errors.New("tolls response is not an object"))
	}

	list := parsed.Get("tollsList")
	if !list.Exists() || list.Type == gjson.Null {
		return []domain.TollPoint{}, nil
	}
	if !list.IsArray() {
		return nil, network.ParseError(errors.New("tollsList is not an array"))
	}

	entries := list.Array()
	points := make([]domain.TollPoint, 0, len(entries))
	for i, entry := range entries {
		if !entry.IsObject() {
			return nil, network.ParseError(fmt.Errorf("tollsList[%d] is not an object", i))
		}

		lat, err := coordinate(entry, "latitude")
		if err != nil {
			return nil, network.ParseError(fmt.Errorf("tollsList[%d]: %w", i, err))
		}
		lng, err := coordinate(entry, "longitude")
		if err != nil {
			return nil, network.ParseError(fmt.Errorf("tollsList[%d]: %w", i, err))
		}

		name := entry.Get("name").String()
		if IsServiceArea(name) {
			continue
		}

		points = append(points, domain.TollPoint{
			ID:          entry.Get("code").String(),
			Name:        name,
			Latitude:    lat,
			Longitude:   lng,
			Description: fmt.Sprintf("Highway: %s, Type: %s", entry.Get("highway").String(), entry.Get("type").String()),
			IsActive:    true,
		})
	}
	return points, nil
}

// IsServiceArea reports whether a toll list entry is a service area.
func IsServiceArea(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range serviceAreaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func coordinate(entry gjson.Result, field string) (float64, error) {
	v := entry.Get(field)
	switch v.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		if f := gjson.Parse(v.Str); f.Type == gjson.Number {
			return f.Num, nil
		}
	}
	return 0, fmt.Errorf("%s is not numeric", field)
}

// ParseTrips reads the data array of a trips response. Numeric fields accept
// numbers or numeric strings and default to zero otherwise. A missing data
// array, a non-object entry or a missing licensePlate object fails the batch.
func ParseTrips(body []byte) ([]domain.Trip, error) {
	if !gjson.ValidBytes(body) {
		return nil, network.ParseError(errors.New("trips response is not valid json"))
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, network.ParseError(errors.New("trips response has no data array"))
	}

	entries := data.Array()
	trips := make([]domain.Trip, 0, len(entries))
	for i, entry := range entries {
		if !entry.IsObject() {
			return nil, network.ParseError(fmt.Errorf("data[%d] is not an object", i))
		}
		plate := entry.Get("licensePlate")
		if !plate.IsObject() {
			return nil, network.ParseError(fmt.Errorf("data[%d] has no licensePlate", i))
		}

		trips = append(trips, domain.Trip{
			TripNumber:           int64(number(entry, "tripNumber")),
			TotalDistance:        number(entry, "totalDistance"),
			TotalDurationSeconds: int64(number(entry, "totalDuration")),
			Highways:             entry.Get("highways").String(),
			StartDate:            int64(number(entry, "startDate")),
			TotalCost:            number(entry, "totalCost"),
			LicensePlate: domain.LicensePlate{
				Value:           plate.Get("value").String(),
				VehicleCategory: plate.Get("vehicleCategory").String(),
				IsDefault:       plate.Get("default").Bool(),
			},
		})
	}
	return trips, nil
}

// number reads field as a float, tolerating numeric strings. Anything else is zero.
func number(entry gjson.Result, field string) float64 {
	v, err := coordinate(entry, field)
	if err != nil {
		return 0
	}
	return v
}
