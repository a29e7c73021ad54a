package audit

import (
	"context"

	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// ZapAuditLogger implements domain.AuditLogger by writing structured entries to a named logger
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewZapAuditLogger creates an audit logger under the "audit" name
func NewZapAuditLogger(logger *zap.Logger) domain.AuditLogger {
	return &ZapAuditLogger{logger: logger.Named("audit")}
}

// LogEvent implements domain.AuditLogger
func (l *ZapAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.UserID != 0 {
		fields = append(fields, zap.Uint("user_id", event.UserID))
	}
	if event.CPF != "" {
		fields = append(fields, zap.String("cpf", event.CPF))
	}
	if event.IPAddress != "" {
		fields = append(fields, zap.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if event.Success {
		l.logger.Info("audit", fields...)
	} else {
		l.logger.Warn("audit", append(fields, zap.String("error", event.ErrorMsg))...)
	}
	return nil
}
