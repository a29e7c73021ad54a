package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAuditLogger_LogEvent(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		event       *domain.AuditEvent
		wantLevel   zapcore.Level
		wantCPF     string
		description string
	}{
		{
			name:        "success",
			event:       domain.NewAuditEvent(domain.TokenValidatedEvent, at).WithCPF("52998224725").WithUser(7),
			wantLevel:   zapcore.InfoLevel,
			wantCPF:     "*********25",
			description: "successful events are logged at info with masked cpf",
		},
		{
			name:        "failure",
			event:       domain.NewAuditEvent(domain.AccountLockedEvent, at).WithCPF("52998224725").WithError(errors.New("locked")),
			wantLevel:   zapcore.WarnLevel,
			wantCPF:     "*********25",
			description: "failed events are logged at warn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			logger := NewZapAuditLogger(zap.New(core))

			if err := logger.LogEvent(context.Background(), tt.event); err != nil {
				t.Fatalf("LogEvent() error = %v", err)
			}
			if logs.Len() != 1 {
				t.Fatalf("expected 1 entry, got %d", logs.Len())
			}
			entry := logs.All()[0]
			if entry.Level != tt.wantLevel {
				t.Errorf("level = %v, want %v (%s)", entry.Level, tt.wantLevel, tt.description)
			}
			if got := entry.ContextMap()["cpf"]; got != tt.wantCPF {
				t.Errorf("cpf = %v, want %v", got, tt.wantCPF)
			}
			if entry.LoggerName != "audit" {
				t.Errorf("logger name = %q, want audit", entry.LoggerName)
			}
		})
	}
}
