package dto

import (
	"time"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// Notification types emitted by the review workflow.
const (
	NotificationSubmissionReceived = "submission.received"
	NotificationSubmissionAssigned = "submission.assigned"
	NotificationHighSimilarity     = "submission.high_similarity"
	NotificationLecturerDecision   = "submission.lecturer_decision"
	NotificationFinalDecision      = "submission.final_decision"
	NotificationAccountApproved    = "account.approved"
)

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID  uint   `json:"user_id" validate:"required"`
	Type    string `json:"type" validate:"required,max=64"`
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

// NotificationListRequest pages through one inbox.
type NotificationListRequest struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint       `json:"id"`
	UserID    uint       `json:"user_id"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationReadAllResponse reports how many entries a bulk mark-read touched.
type NotificationReadAllResponse struct {
	Updated int64 `json:"updated"`
}

func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		ReadAt:    model.ReadAt,
		CreatedAt: model.CreatedAt,
	}
}

func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
