package notifications

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSender struct {
	to, subject, body string
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return nil
}

type recordingSMS struct {
	to, message string
}

func (r *recordingSMS) Send(_ context.Context, to, message string) error {
	r.to, r.message = to, message
	return nil
}

func TestNotificationService_RoutesChannels(t *testing.T) {
	email := &recordingSender{}
	sms := &recordingSMS{}
	svc := NewNotificationService(email, sms)

	require.NoError(t, svc.SendEmail(context.Background(), "x@y.com", "Seu código", "123456"))
	require.NoError(t, svc.SendSMS(context.Background(), "+5511999990000", "conta bloqueada"))

	assert.Equal(t, "x@y.com", email.to)
	assert.Equal(t, "Seu código", email.subject)
	assert.Equal(t, "+5511999990000", sms.to)
	assert.Equal(t, "conta bloqueada", sms.message)
}

func TestSendersWithoutConfigurationOnlyLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	smtpSender := NewSMTPSender(SMTPConfig{}, log)
	require.NoError(t, smtpSender.Send(context.Background(), "x@y.com", "subject", "secret code 123456"))

	twilioSender := NewTwilioSender("", "", "", log)
	require.NoError(t, twilioSender.Send(context.Background(), "+5511999991234", "hello"))

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotContains(t, f.String, "123456", "code must never reach the logs")
		}
	}
	assert.Equal(t, "****1234", logs.All()[1].ContextMap()["to"])
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@dignus.com", "Dignus", "x@y.com", "Código", "linha 1\nlinha 2"))

	assert.True(t, strings.HasPrefix(msg, "From: Dignus <noreply@dignus.com>\r\n"))
	assert.Contains(t, msg, "To: x@y.com\r\n")
	assert.Contains(t, msg, "Subject: Código\r\n")
	assert.Contains(t, msg, "charset=UTF-8\r\n\r\n")
	assert.True(t, strings.HasSuffix(msg, "linha 1\r\nlinha 2"))
}
