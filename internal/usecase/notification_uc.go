package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/domain/model"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
	"github.com/myagiz61/backend/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	adapter.Notifier
	// List returns the newest notifications of a user first.
	List(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type notificationUC struct {
	repo repository.NotificationRepository
	now  func() time.Time
	log  *zerolog.Logger
}

func NewNotificationUseCase(repo repository.NotificationRepository, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{repo: repo, now: time.Now, log: &l}
}

func (n *notificationUC) Notify(ctx context.Context, userID, title, message string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidArgument
	}
	note := model.NewNotification(userID, title, message, n.now())
	if err := n.repo.Save(ctx, repository.NoTX, note); err != nil {
		return err
	}
	n.log.Debug().Str("user_id", userID).Str("notification_id", note.ID).Msg("notification stored")
	return nil
}

func (n *notificationUC) List(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return n.repo.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (n *notificationUC) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := n.repo.MarkRead(ctx, repository.NoTX, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
