package logger

import (
	"context"
	"fmt"
	"log/slog"

	"agora/bot"
)

// TelegramHandler is a slog.Handler that forwards records at or above
// minLevel to the Telegram ops channel after the wrapped handler has
// written them.
type TelegramHandler struct {
	handler  slog.Handler
	bot      *bot.TgBot
	minLevel slog.Level
	attrs    []slog.Attr
}

func NewTelegramHandler(handler slog.Handler, b *bot.TgBot, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		bot:      b,
		minLevel: minLevel,
	}
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	if record.Level < h.minLevel || h.bot == nil {
		return nil
	}

	msg := fmt.Sprintf("*%s* `%s`", record.Level.String(), record.Message)
	for _, attr := range h.attrs {
		msg += formatAttr(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg += formatAttr(attr)
		return true
	})

	h.bot.SendMessageWithLevel(msg, record.Level)
	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		bot:      h.bot,
		minLevel: h.minLevel,
		attrs:    merged,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		bot:      h.bot,
		minLevel: h.minLevel,
		attrs:    h.attrs,
	}
}

func formatAttr(attr slog.Attr) string {
	if attr.Key == "error" {
		return fmt.Sprintf("\n%s: ```%v```", attr.Key, attr.Value)
	}
	return bot.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
}
