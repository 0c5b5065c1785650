// Package remote binds the mTolling REST endpoints to domain types.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"mtolling/internal/domain"
)

// Endpoint paths, relative to the API base URL.
const (
	LoginPath    = "/mtolling/services/mtolling/login"
	LocationPath = "/mtolling/services/mtolling/location"
	TollsPath    = "/mtolling/services/mtolling/tolls"
	TripsPath    = "/mtolling/services/mtolling/trips"
)

// HTTPClient is the subset of network.Client used by the API.
type HTTPClient interface {
	Get(ctx context.Context, path, token string) ([]byte, error)
	Post(ctx context.Context, path string, body []byte, token string) ([]byte, error)
}

// API calls the mTolling endpoints.
type API struct {
	client HTTPClient
}

// NewAPI creates a new API.
func NewAPI(client HTTPClient) *API {
	return &API{client: client}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (a *API) Login(ctx context.Context, email, password string) (domain.AuthToken, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("encode login: %w", err)
	}

	resp, err := a.client.Post(ctx, LoginPath, body, "")
	if err != nil {
		return domain.AuthToken{}, err
	}

	value, err := ExtractToken(resp)
	if err != nil {
		return domain.AuthToken{}, err
	}
	return domain.AuthToken{Value: value, Scheme: domain.TokenSchemeBearer}, nil
}

// SendLocation forwards a fix. The response body is ignored.
func (a *API) SendLocation(ctx context.Context, token string, fix domain.LocationFix) error {
	body, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	_, err = a.client.Post(ctx, LocationPath, body, token)
	return err
}

// Tolls fetches the toll point list.
func (a *API) Tolls(ctx context.Context, token string) ([]domain.TollPoint, error) {
	resp, err := a.client.Get(ctx, TollsPath, token)
	if err != nil {
		return nil, err
	}
	return ParseTolls(resp)
}

// Trips fetches the account's trips.
func (a *API) Trips(ctx context.Context, token string) ([]domain.Trip, error) {
	resp, err := a.client.Get(ctx, TripsPath, token)
	if err != nil {
		return nil, err
	}
	return ParseTrips(resp)
}
