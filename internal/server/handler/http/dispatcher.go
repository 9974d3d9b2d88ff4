// Package http exposes the calendar operations over a single HTTP endpoint.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/calendar/internal/metrics"
	"github.com/atinyakov/calendar/internal/operation"
	"github.com/atinyakov/calendar/internal/request"
	"github.com/atinyakov/calendar/internal/service"
	"github.com/atinyakov/calendar/internal/session"
)

const maxBodyBytes = 1 << 20

// invalidLabel tags metrics for requests that never reached a handler.
const invalidLabel = "invalid"

// Validator checks a decoded body and resolves the caller's session.
type Validator interface {
	Validate(fields map[string]any, sessionID string) (operation.Kind, request.Params, error)
}

// Operations runs a validated operation.
type Operations interface {
	Handle(ctx context.Context, kind operation.Kind, p request.Params) service.Outcome
}

// Dispatcher decodes type-tagged requests, validates them, runs the matching
// operation and writes the JSON response.
type Dispatcher struct {
	// Validator checks requests before any operation runs.
	Validator Validator
	// Operations executes validated requests.
	Operations Operations
	// AllowedOrigin is written as Access-Control-Allow-Origin on every response.
	AllowedOrigin string
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Metrics defaults to metrics.Nop.
	Metrics metrics.Recorder
}

// Dispatch handles one API request.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request) {
	fields, err := request.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		d.logger().Warn("rejecting request", zap.Error(err))
		d.write(w, invalidLabel, operation.StatusInvalid, nil)
		return
	}

	var sessionID string
	if c, err := r.Cookie(session.CookieName); err == nil {
		sessionID = c.Value
	}

	kind, params, err := d.Validator.Validate(fields, sessionID)
	if err != nil {
		d.logger().Warn("request params are invalid",
			zap.String("type", kind.String()),
			zap.Error(err),
		)
		d.write(w, invalidLabel, operation.StatusInvalid, nil)
		return
	}

	out := d.Operations.Handle(r.Context(), kind, params)
	if !out.Succeeded {
		d.write(w, kind.String(), kind.FailureStatus(), out.Payload)
		return
	}

	if kind == operation.Login {
		if p, ok := out.Payload.(map[string]string); ok {
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    p[session.CookieName],
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
	d.write(w, kind.String(), http.StatusOK, out.Payload)
}

// Reject answers requests that are not POSTs to the API endpoint.
func (d *Dispatcher) Reject(w http.ResponseWriter, r *http.Request) {
	d.logger().Warn("unsupported request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	d.write(w, invalidLabel, operation.StatusInvalid, nil)
}

func (d *Dispatcher) write(w http.ResponseWriter, label string, status int, payload any) {
	body := []byte("{}")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			d.logger().Error("failed to encode response", zap.String("operation", label), zap.Error(err))
		} else {
			body = b
		}
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", d.AllowedOrigin)
	h.Set("Access-Control-Allow-Credentials", "true")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		d.logger().Warn("failed to write response", zap.Error(err))
	}

	d.recorder().RecordRequest(label, status)
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Dispatcher) recorder() metrics.Recorder {
	if d.Metrics == nil {
		return metrics.Nop{}
	}
	return d.Metrics
}
