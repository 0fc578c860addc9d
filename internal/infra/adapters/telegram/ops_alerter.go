package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/domain/ports/adapter"
)

var _ adapter.OpsAlerter = (*OpsAlerter)(nil)

// telegram rejects longer messages
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// OpsAlerter pages every configured admin chat through a Telegram bot.
type OpsAlerter struct {
	bot      sender
	adminIDs []int64
	log      *zerolog.Logger
}

func NewOpsAlerter(cfg *config.TelegramConfig, logger *zerolog.Logger) (*OpsAlerter, error) {
	if cfg == nil || cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.AdminIDs) == 0 {
		return nil, errors.New("telegram admin ids are empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newOpsAlerter(bot, cfg.AdminIDs, logger), nil
}

func newOpsAlerter(bot sender, adminIDs []int64, logger *zerolog.Logger) *OpsAlerter {
	l := logger.With().Str("component", "OpsAlerter").Logger()
	return &OpsAlerter{bot: bot, adminIDs: adminIDs, log: &l}
}

// Alert tries every admin and returns the joined send errors.
func (a *OpsAlerter) Alert(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}
	var errs []error
	for _, id := range a.adminIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := a.bot.Send(msg); err != nil {
			a.log.Error().Err(err).Int64("admin_id", id).Msg("ops alert not delivered")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ adapter.OpsAlerter = (*NoopAlerter)(nil)

// NoopAlerter logs alerts instead of sending them. Used when no bot token is configured.
type NoopAlerter struct {
	log *zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	l := logger.With().Str("component", "NoopAlerter").Logger()
	return &NoopAlerter{log: &l}
}

func (a *NoopAlerter) Alert(ctx context.Context, text string) error {
	a.log.Warn().Str("alert", text).Msg("ops alert")
	return nil
}
