package audit

import (
	"context"
	"log/slog"

	"lif/pkg/attrs"
	"lif/pkg/requestcontext"
)

// LogAudit logs an audit event to both the structured logger and the
// publisher. It enriches the event with the correlation ID and the
// authenticated service from the request context, and extracts subject,
// outcome and reason from attrList.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher *Publisher, event AuditEvent, attrList ...any) {
	correlationID := requestcontext.CorrelationID(ctx)
	if correlationID != "" {
		attrList = append(attrList, "correlation_id", correlationID)
	}

	args := append(attrList, "event", string(event), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}

	_ = publisher.Emit(ctx, Event{
		Action:        string(event),
		Subject:       extractSubject(attrList),
		Service:       requestcontext.Service(ctx),
		Outcome:       attrs.ExtractString(attrList, "outcome"),
		Reason:        attrs.ExtractString(attrList, "reason"),
		CorrelationID: correlationID,
	})
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"person_identifier", "mapping_key", "entity", "subject"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
