package middleware

import (
	"net/http"

	"optimahub/internal/domain/audit"
	"optimahub/internal/requestctx"
)

// AuditEvent describes an action taken by the request's principal.
func AuditEvent(r *http.Request, action, entityType, entityID string) audit.Event {
	evt := audit.Event{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(r.Context()),
		IP:         clientIPKey(r),
	}
	if principal, ok := GetPrincipal(r.Context()); ok {
		evt.Actor = principal.Email
	}
	return evt
}
