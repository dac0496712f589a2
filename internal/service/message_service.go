package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	apperrors "weddingsite/internal/errors"
	"weddingsite/internal/events"
	"weddingsite/internal/metrics"
	"weddingsite/internal/model"
	"weddingsite/internal/repository"
)

const (
	// MaxMessageLength bounds guest message text, in characters.
	MaxMessageLength = 500
	// WallPageSize is how many messages each wall page adds.
	WallPageSize = 20
	// MaxWallPage keeps page*WallPageSize+1 within an int.
	MaxWallPage = math.MaxInt/WallPageSize - 1
)

// MessageWall is a growing window over the public messages.
type MessageWall struct {
	Messages []model.GuestMessage `json:"messages"`
	Page     int                  `json:"page"`
	HasMore  bool                 `json:"has_more"`
}

// moderationNotice is queued for moderators on every submission.
type moderationNotice struct {
	MessageID   string    `json:"message_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// MessageService handles guest message submission and the public wall.
type MessageService interface {
	Submit(ctx context.Context, identity *model.Identity, text string) (*model.GuestMessage, error)
	Wall(ctx context.Context, page int) (*MessageWall, error)
}

type messageService struct {
	repo  repository.MessageRepository
	queue events.QueuePublisher
	name  string
	log   zerolog.Logger
}

// NewMessageService creates a new message service. queue may be nil.
func NewMessageService(repo repository.MessageRepository, queue events.QueuePublisher, queueName string, log zerolog.Logger) MessageService {
	return &messageService{repo: repo, queue: queue, name: queueName, log: log}
}

// Submit stores text for moderation. Approval and visibility are left to
// storage defaults.
func (s *messageService) Submit(ctx context.Context, identity *model.Identity, text string) (*model.GuestMessage, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	value := strings.TrimSpace(text)
	if value == "" {
		return nil, apperrors.ErrMessageEmpty
	}
	if utf8.RuneCountInString(value) > MaxMessageLength {
		return nil, apperrors.ErrMessageTooLong
	}

	msg := &model.GuestMessage{
		UserID:      identity.ID,
		Text:        value,
		DisplayName: identity.DisplayName(),
	}
	err := s.repo.Create(ctx, msg)
	metrics.MessagesSubmitted.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if s.queue != nil {
		notice := moderationNotice{
			MessageID:   msg.ID.String(),
			UserID:      msg.UserID.String(),
			DisplayName: msg.DisplayName,
			Text:        msg.Text,
			SubmittedAt: msg.CreatedAt,
		}
		if err := s.queue.PublishJSON(ctx, s.name, notice); err != nil {
			s.log.Warn().Err(err).Str("message_id", notice.MessageID).Msg("moderation notice not queued")
		}
	}
	return msg, nil
}

// Wall returns the first page*WallPageSize approved public messages, newest first.
func (s *messageService) Wall(ctx context.Context, page int) (*MessageWall, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxWallPage {
		page = MaxWallPage
	}
	limit := page * WallPageSize
	rows, err := s.repo.ListPublic(ctx, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	wall := &MessageWall{Page: page, Messages: rows}
	if len(rows) > limit {
		wall.Messages = rows[:limit]
		wall.HasMore = true
	}
	if wall.Messages == nil {
		wall.Messages = []model.GuestMessage{}
	}
	return wall, nil
}
