package notifications

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// SMSSender delivers a single text message
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// TwilioSender sends SMS through the Twilio REST API
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioSender creates a Twilio-backed SMS sender. With no fromNumber configured
// messages are only logged.
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client:     client,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// Send implements SMSSender
func (t *TwilioSender) Send(ctx context.Context, to, message string) error {
	if t.fromNumber == "" {
		t.logger.Info("sms delivery disabled, message dropped",
			zap.String("to", maskPhone(to)),
			zap.Int("length", len(message)))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
