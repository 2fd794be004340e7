package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
)

const maxErrorBody = 512

// exchange issues one request and turns non-2xx answers into a
// *domain.StatusError. Cancellation is checked before the call is made.
func exchange(ctx context.Context, t ports.Transport, req ports.Request) (ports.Response, error) {
	if err := ctx.Err(); err != nil {
		return ports.Response{}, err
	}
	resp, err := t.Do(ctx, req)
	if err != nil {
		return ports.Response{}, err
	}
	if !resp.OK() {
		return resp, &domain.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), maxErrorBody)}
	}
	return resp, nil
}

func jsonRequest(method, url string, token domain.Token, body any) (ports.Request, error) {
	req := ports.Request{Method: method, URL: url, Header: http.Header{}}
	req.Header.Set("Accept", "application/json")
	if token.Value != "" {
		req.Header.Set("Authorization", token.Bearer())
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return req, fmt.Errorf("marshal request body: %w", err)
		}
		req.Body = raw
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
