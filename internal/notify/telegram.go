package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrSharingDisabled is returned when no Telegram chat is configured.
var ErrSharingDisabled = errors.New("sharing is not configured")

// maxMessageLen is Telegram's limit for a single text message.
const maxMessageLen = 4096

// Sender delivers an exported list somewhere outside the app.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Disabled is the Sender used when sharing is off.
type Disabled struct{}

func (Disabled) Send(context.Context, string) error {
	return ErrSharingDisabled
}

// TelegramSender posts exported lists to a fixed chat.
type TelegramSender struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSender connects to the Bot API. An empty endpoint uses the public one.
func NewTelegramSender(token string, chatID int64, endpoint string) (*TelegramSender, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{api: api, chatID: chatID}, nil
}

// Send posts text, split on line boundaries when it exceeds one message.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to share")
	}
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.api.Send(tgbotapi.NewMessage(s.chatID, part)); err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}
	return nil
}

func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var (
		parts []string
		sb    strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		if sb.Len()+len(line) > limit && sb.Len() > 0 {
			parts = append(parts, sb.String())
			sb.Reset()
		}
		// A single line longer than the limit is cut at the byte limit.
		for len(line) > limit {
			parts = append(parts, line[:limit])
			line = line[limit:]
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}
