package service

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/observability"
	"github.com/noah-isme/proposal-review-api/internal/repository"
)

const notificationBufferSize = 16

// NotificationService keeps each account's inbox and pushes new entries to live SSE and websocket streams on every node.
type NotificationService interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, userID uint, req dto.NotificationListRequest) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (dto.NotificationReadAllResponse, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo      repository.NotificationRepository
	buses     []NotificationBus
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	streams   *streamRegistry
	nodeID    string
	now       func() time.Time
}

// notificationEvent is the wire format shared by every bus. Source lets a node skip its own echoes.
type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// NewNotificationService constructs the inbox. With no buses, delivery stays local to this node.
func NewNotificationService(repo repository.NotificationRepository, validate *validator.Validate, logger zerolog.Logger, buses ...NotificationBus) NotificationService {
	return &notificationService{
		repo:      repo,
		buses:     buses,
		validator: validate,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/proposal-review-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
		streams:   newStreamRegistry(),
		nodeID:    uuid.NewString(),
		now:       time.Now,
	}
}

func (s *notificationService) Start(ctx context.Context) {
	for _, bus := range s.buses {
		if err := bus.Consume(ctx, s.handleEvent); err != nil {
			s.logger.Error().Err(err).Str("bus", bus.Name()).Msg("failed to consume notification bus")
		}
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	// Stored as plain text: tags are stripped, then entities decoded so titles keep their quotes.
	message := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(payload.Message)))
	if message == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(payload.UserID)),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Message: message,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.streams.deliver(response)
	s.relay(ctx, response)

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()
	return response, nil
}

func (s *notificationService) List(ctx context.Context, userID uint, req dto.NotificationListRequest) ([]dto.NotificationResponse, error) {
	if userID == 0 {
		return nil, ErrRoleNotPermitted
	}

	notifications, err := s.repo.List(ctx, repository.NotificationFilter{
		UserID:     userID,
		UnreadOnly: req.UnreadOnly,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.id", int64(id)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(ctx, id, userID, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (dto.NotificationReadAllResponse, error) {
	if userID == 0 {
		return dto.NotificationReadAllResponse{}, ErrRoleNotPermitted
	}
	updated, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return dto.NotificationReadAllResponse{}, err
	}
	return dto.NotificationReadAllResponse{Updated: updated}, nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrRoleNotPermitted
	}
	return s.repo.CountUnread(ctx, userID)
}

// Subscribe opens a live stream for userID. The returned func must be called to release it.
func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	ch := s.streams.open(userID)
	observability.NotificationStreamsActive().Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.streams.close(userID, ch)
			observability.NotificationStreamsActive().Dec()
		})
	}
}

func (s *notificationService) relay(ctx context.Context, notification dto.NotificationResponse) {
	if len(s.buses) == 0 {
		return
	}

	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode notification event")
		return
	}

	for _, bus := range s.buses {
		if err := bus.Publish(ctx, payload); err != nil {
			s.logger.Warn().Err(err).Str("bus", bus.Name()).Msg("failed to relay notification")
		}
	}
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}
	if event.Source == s.nodeID || event.Notification.UserID == 0 {
		return
	}

	s.streams.deliver(event.Notification)
}

// streamRegistry tracks the live streams open on this node, keyed by account.
type streamRegistry struct {
	mu      sync.RWMutex
	streams map[uint]map[chan dto.NotificationResponse]struct{}
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{streams: make(map[uint]map[chan dto.NotificationResponse]struct{})}
}

func (r *streamRegistry) open(userID uint) chan dto.NotificationResponse {
	ch := make(chan dto.NotificationResponse, notificationBufferSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streams[userID] == nil {
		r.streams[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	r.streams[userID][ch] = struct{}{}
	return ch
}

func (r *streamRegistry) close(userID uint, ch chan dto.NotificationResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()

	streams, ok := r.streams[userID]
	if !ok {
		return
	}
	if _, ok := streams[ch]; !ok {
		return
	}
	delete(streams, ch)
	close(ch)
	if len(streams) == 0 {
		delete(r.streams, userID)
	}
}

// deliver never blocks: a stream whose buffer is full misses the event and catches up from the inbox.
func (r *streamRegistry) deliver(notification dto.NotificationResponse) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for ch := range r.streams[notification.UserID] {
		select {
		case ch <- notification:
		default:
		}
	}
}
