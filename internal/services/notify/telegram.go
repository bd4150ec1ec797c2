package notify

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides the Bot API endpoint (tests point it at httptest).
	APIURL string
}

// TelegramSink pushes the warning to a Telegram chat, useful when the
// machine is headless or the user is away from the screen.
type TelegramSink struct {
	bot  *tele.Bot
	chat *tele.Chat
	opt  *tele.SendOptions
}

func NewTelegramSink(cfg TelegramConfig) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	// Offline: send-only, no getMe round trip and no poller.
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
		opt:  &tele.SendOptions{ThreadID: cfg.ThreadID, DisableWebPagePreview: true},
	}, nil
}

func (*TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := m.Body
	if m.Title != "" {
		text = m.Title + "\n" + m.Body
	}
	_, err := s.bot.Send(s.chat, text, s.opt)
	return err
}
