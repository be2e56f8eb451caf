package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/access-gate/internal/config"
	"github.com/spec-kit/access-gate/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIdentityProvisioned, n.handleIdentityProvisioned)
	n.dispatcher.Subscribe(events.EventCredentialRotated, n.handleCredentialRotated)
	n.dispatcher.Subscribe(events.EventScanAccepted, n.handleScanAccepted)
}

func (n *NotificationService) handleIdentityProvisioned(ctx context.Context, event events.Event) error {
	n.logger.Info("IdentityProvisioned", zap.String("identity_id", event.IdentityID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCredentialRotated(ctx context.Context, event events.Event) error {
	n.logger.Info("CredentialRotated", zap.String("identity_id", event.IdentityID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleScanAccepted(ctx context.Context, event events.Event) error {
	n.logger.Info("ScanAccepted", zap.String("identity_id", event.IdentityID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("identity_id", event.IdentityID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("identity_id", event.IdentityID),
		zap.String("event_type", string(event.Type)))
}
