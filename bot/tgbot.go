// Package bot is the Telegram ops channel: error records forwarded from
// the logger and a read-only /status command for operators. Recipients are
// operator accounts with a telegram id and alerts enabled.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"agora/entity"
	"agora/lib/sl"
)

// Database defines the storage operations the bot depends on.
type Database interface {
	GetTelegramUsers(ctx context.Context) ([]*entity.User, error)
}

// Stats provides the numbers the /status command reports.
type Stats interface {
	WaitingCount(ctx context.Context) (int, error)
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	db      Database
	stats   Stats
	mu      sync.RWMutex // guards users
	users   []*entity.User
	updater *ext.Updater
}

func NewTgBot(apiKey string, db Database, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	b := &TgBot{
		log: log.With(sl.Module("bot")),
		api: api,
		db:  db,
	}
	if err = b.loadUsers(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *TgBot) SetStats(stats Stats) {
	b.stats = stats
}

func (b *TgBot) loadUsers() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users, err := b.db.GetTelegramUsers(ctx)
	if err != nil {
		return fmt.Errorf("load telegram users: %w", err)
	}
	b.mu.Lock()
	b.users = users
	b.mu.Unlock()

	b.log.With(slog.Int("count", len(users))).Debug("telegram users loaded")
	return nil
}

// Start begins long polling for commands. Non-blocking.
func (b *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(_ *tgbotapi.Bot, _ *ext.Context, err error) ext.DispatcherAction {
			b.log.With(sl.Err(err)).Error("dispatcher error")
			return ext.DispatcherActionNoop
		},
	})
	dispatcher.AddHandler(handlers.NewCommand("status", b.cmdStatus))
	dispatcher.AddHandler(handlers.NewCommand("help", b.cmdHelp))

	b.updater = ext.NewUpdater(dispatcher, nil)
	err := b.updater.StartPolling(b.api, &ext.PollingOpts{DropPendingUpdates: true})
	if err != nil {
		return fmt.Errorf("telegram polling: %w", err)
	}

	b.log.Info("telegram bot started")
	return nil
}

func (b *TgBot) Stop() {
	if b.updater != nil {
		_ = b.updater.Stop()
	}
}

func (b *TgBot) cmdStatus(api *tgbotapi.Bot, ctx *ext.Context) error {
	if !b.knownChat(ctx.EffectiveChat.Id) {
		return nil
	}
	if b.stats == nil {
		_, err := ctx.EffectiveMessage.Reply(api, "status unavailable", nil)
		return err
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	count, err := b.stats.WaitingCount(reqCtx)
	if err != nil {
		b.log.With(sl.Err(err)).Error("waiting count for status command")
		_, err = ctx.EffectiveMessage.Reply(api, "status unavailable", nil)
		return err
	}

	_, err = ctx.EffectiveMessage.Reply(api, fmt.Sprintf("waiting list: ~%d signups", count), nil)
	return err
}

func (b *TgBot) cmdHelp(api *tgbotapi.Bot, ctx *ext.Context) error {
	if !b.knownChat(ctx.EffectiveChat.Id) {
		return nil
	}
	_, err := ctx.EffectiveMessage.Reply(api, "/status - waiting list size\n/help - this message", nil)
	return err
}

func (b *TgBot) knownChat(chatId int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, u := range b.users {
		if u.TelegramId == chatId {
			return true
		}
	}
	return false
}

// SendMessage delivers a plain notification to every enabled operator.
func (b *TgBot) SendMessage(text string) {
	b.broadcast(text)
}

// SendMessageWithLevel delivers a formatted log record. Only warnings and
// above reach operators; the logger handler filters further upstream.
func (b *TgBot) SendMessageWithLevel(text string, level slog.Level) {
	if level < slog.LevelWarn {
		return
	}
	b.broadcast(text)
}

func (b *TgBot) broadcast(text string) {
	b.mu.RLock()
	recipients := make([]int64, 0, len(b.users))
	for _, u := range b.users {
		recipients = append(recipients, u.TelegramId)
	}
	b.mu.RUnlock()

	for _, chatId := range recipients {
		_, err := b.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ParseMode: "Markdown",
		})
		if err != nil {
			b.log.With(
				sl.Err(err),
				slog.Int64("chat_id", chatId),
			).Error("send telegram message")
		}
	}
}

// Sanitize escapes characters Telegram's Markdown parser would choke on.
func Sanitize(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
