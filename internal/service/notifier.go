package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
)

// Notifier delivers workflow events to the affected user. Delivery failures never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, message string)
}

type workflowNotifier struct {
	notifications NotificationService
	logger        zerolog.Logger
}

// NewWorkflowNotifier adapts the notification service to the workflow.
func NewWorkflowNotifier(notifications NotificationService, logger zerolog.Logger) Notifier {
	if notifications == nil {
		return nopNotifier{}
	}
	return &workflowNotifier{
		notifications: notifications,
		logger:        logger.With().Str("component", "workflow_notifier").Logger(),
	}
}

func (n *workflowNotifier) Notify(ctx context.Context, userID uint, kind, message string) {
	if userID == 0 {
		return
	}
	_, err := n.notifications.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  userID,
		Type:    kind,
		Message: message,
	})
	if err != nil {
		n.logger.Warn().Err(err).Uint("user_id", userID).Str("type", kind).Msg("failed to deliver notification")
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uint, string, string) {}
