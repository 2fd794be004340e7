package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Do", mock.Anything, mock.MatchedBy(func(req ports.Request) bool {
		var body map[string]string
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return false
		}
		return req.Method == http.MethodPost &&
			req.URL == "http://api.test/auth/token" &&
			req.Header.Get("Authorization") == "" &&
			body["api_key"] == "key" && body["api_secret"] == "secret"
	})).Return(okResponse(`{"access_token":"tok-123","token_type":"bearer"}`), nil).Once()

	a := NewAuthenticator(testLogger(), transport, testAPI())
	tok, err := a.Authenticate(context.Background(), domain.Credentials{Key: "key", Secret: "secret"})

	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.Value)
	assert.Equal(t, "[redacted]", tok.String())
	transport.AssertExpectations(t)
}

func TestAuthenticator_Failures(t *testing.T) {
	tests := []struct {
		name  string
		creds domain.Credentials
		resp  ports.Response
		err   error
		calls int
	}{
		{"missing secret", domain.Credentials{Key: "key"}, ports.Response{}, nil, 0},
		{"rejected", domain.Credentials{Key: "k", Secret: "s"}, ports.Response{StatusCode: http.StatusUnauthorized, Body: []byte(`{"detail":"bad key"}`)}, nil, 1},
		{"no token field", domain.Credentials{Key: "k", Secret: "s"}, okResponse(`{"token_type":"bearer"}`), nil, 1},
		{"empty token", domain.Credentials{Key: "k", Secret: "s"}, okResponse(`{"access_token":""}`), nil, 1},
		{"transport error", domain.Credentials{Key: "k", Secret: "s"}, ports.Response{}, errors.New("dial tcp: refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			transport.On("Do", mock.Anything, mock.Anything).Return(tt.resp, tt.err)

			a := NewAuthenticator(testLogger(), transport, testAPI())
			tok, err := a.Authenticate(context.Background(), tt.creds)

			assert.ErrorIs(t, err, domain.ErrAuth)
			assert.Empty(t, tok.Value)
			transport.AssertNumberOfCalls(t, "Do", tt.calls)
		})
	}
}
