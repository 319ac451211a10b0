// Package audit emits security-relevant events as JSON lines through the
// shared obs logger. Entries carry the acting principal and the request id
// whenever the context has them, so a single user action can be traced across
// the access log and the audit trail.
package audit

import (
	"context"
	"errors"
	"strings"

	"sentra.org/internal/auth"
	"sentra.org/internal/obs"
)

type requestIDKey struct{}

// WithRequestID attaches the request identifier used to correlate audit
// entries with access-log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// LogEvent records one named event. The event name is dot-scoped by
// convention ("auth.login", "rbac.role.create"); fields hold event-specific
// detail and may be nil.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("audit: event name is required")
	}
	entry := map[string]any{
		"type":  "audit",
		"event": event,
	}
	if rid := requestID(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		entry["user_id"] = p.User.ID
	}
	if fields == nil {
		fields = map[string]any{}
	}
	entry["fields"] = fields
	obs.Emit(entry)
	return nil
}
