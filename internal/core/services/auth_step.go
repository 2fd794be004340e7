package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/tidwall/gjson"
)

// Authenticator exchanges credentials for a bearer token. It makes exactly
// one request and never retries.
type Authenticator struct {
	logger    *slog.Logger
	transport ports.Transport
	api       domain.APIConfig
}

func NewAuthenticator(logger *slog.Logger, transport ports.Transport, api domain.APIConfig) *Authenticator {
	return &Authenticator{
		logger:    logger,
		transport: transport,
		api:       api,
	}
}

// Authenticate returns a token or an error wrapping domain.ErrAuth.
func (a *Authenticator) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Token, error) {
	if !creds.Valid() {
		return domain.Token{}, fmt.Errorf("%w: api key and secret are required", domain.ErrAuth)
	}

	body := map[string]string{
		a.api.Fields.AuthKey:    creds.Key,
		a.api.Fields.AuthSecret: creds.Secret,
	}
	req, err := jsonRequest(http.MethodPost, a.api.URL(a.api.Endpoints.Auth, ""), domain.Token{}, body)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}

	resp, err := exchange(ctx, a.transport, req)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}

	tok := gjson.GetBytes(resp.Body, a.api.Fields.Token)
	if !tok.Exists() || tok.String() == "" {
		return domain.Token{}, fmt.Errorf("%w: response has no %q field", domain.ErrAuth, a.api.Fields.Token)
	}

	a.logger.Debug("authenticated")
	return domain.Token{Value: tok.String()}, nil
}
