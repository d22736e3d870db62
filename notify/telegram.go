package notify

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sender is the slice of the Telegram bot API the notifier uses;
// narrowed for tests.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages to one chat through a bot. Messages are
// queued on a bounded channel and delivered by a background goroutine
// with a small retry budget; when the queue is full the message is
// dropped rather than blocking the caller.
type Telegram struct {
	bot     sender
	chatID  int64
	queue   chan string
	done    chan struct{}
	retries int
	backoff time.Duration
	log     *zap.Logger
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	t := newTelegram(bot, chatID, log)
	t.log.Info("telegram notifications enabled", zap.String("bot", bot.Self.UserName))
	return t, nil
}

func newTelegram(bot sender, chatID int64, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Telegram{
		bot:     bot,
		chatID:  chatID,
		queue:   make(chan string, 64),
		done:    make(chan struct{}),
		retries: 3,
		backoff: time.Second,
		log:     log,
	}
	go t.run()
	return t
}

func (t *Telegram) Send(text string) {
	select {
	case t.queue <- text:
	default:
		t.log.Warn("notification queue full, dropping message")
	}
}

func (t *Telegram) Close() {
	close(t.queue)
	<-t.done
}

func (t *Telegram) run() {
	defer close(t.done)
	for text := range t.queue {
		t.deliver(text)
	}
}

func (t *Telegram) deliver(text string) {
	for attempt := 0; attempt <= t.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(t.backoff * time.Duration(1<<uint(attempt-1)))
		}
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil {
			t.log.Warn("telegram send failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		return
	}
	t.log.Error("telegram message dropped after retries")
}
