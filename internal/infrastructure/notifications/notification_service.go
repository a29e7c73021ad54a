package notifications

import (
	"context"

	"github.com/kai426/Dignus-sub001/domain"
)

// NotificationServiceImpl implements domain.NotificationService
type NotificationServiceImpl struct {
	email EmailSender
	sms   SMSSender
}

// NewNotificationService combines an email and an SMS channel
func NewNotificationService(email EmailSender, sms SMSSender) domain.NotificationService {
	return &NotificationServiceImpl{email: email, sms: sms}
}

// SendEmail implements domain.NotificationService
func (n *NotificationServiceImpl) SendEmail(ctx context.Context, to, subject, body string) error {
	return n.email.Send(ctx, to, subject, body)
}

// SendSMS implements domain.NotificationService
func (n *NotificationServiceImpl) SendSMS(ctx context.Context, to, message string) error {
	return n.sms.Send(ctx, to, message)
}
