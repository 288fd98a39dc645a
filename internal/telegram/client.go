// Package telegram provides a client for sending batch notifications via
// the Telegram Bot API. It formats render outcomes into human-readable
// messages and handles delivery with retry logic for reliability.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/seisview/gmv/internal/models"
)

// Client handles Telegram notifications
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendSummary sends the end-of-batch report listing every processed quake
// and its outcome.
func (c *Client) SendSummary(ctx context.Context, records []*models.RenderRecord) error {
	return c.send(ctx, c.formatSummary(records))
}

// SendFailure sends an immediate notice that one render failed.
func (c *Client) SendFailure(ctx context.Context, quake models.Quake, renderErr error) error {
	message := fmt.Sprintf("âš ï¸ *Render failed*\n\n%s\nM%s %s\nError: %s",
		escapeMarkdownV2(quake.Time.UTC().Format("2006-01-02 15:04:05 UTC")),
		escapeMarkdownV2(fmt.Sprintf("%.1f", quake.Magnitude)),
		escapeMarkdownV2(quake.Place),
		escapeMarkdownV2(renderErr.Error()))
	return c.send(ctx, message)
}

// send delivers a MarkdownV2 message with retry
func (c *Client) send(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(c.chatID, message)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to send message: %w", ctx.Err())
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatSummary formats render records into a Telegram message
func (c *Client) formatSummary(records []*models.RenderRecord) string {
	rendered, failed := 0, 0
	for _, r := range records {
		if r.Status == models.StatusRendered {
			rendered++
		} else {
			failed++
		}
	}

	message := "ðŸŒ *Ground Motion Batch Complete*\n\n"
	message += fmt.Sprintf("âœ… Rendered: %d\nâŒ Failed: %d\n\n", rendered, failed)

	for i, r := range records {
		statusEmoji := "âœ…"
		if r.Status != models.StatusRendered {
			statusEmoji = "âŒ"
		}

		magnitudeStr := escapeMarkdownV2(fmt.Sprintf("M%.1f", r.Magnitude))
		message += fmt.Sprintf("%d\\. %s %s", i+1, statusEmoji, magnitudeStr)
		if r.OutputPath != "" {
			message += fmt.Sprintf(" %s", escapeMarkdownV2(r.OutputPath))
		}
		if r.Error != "" {
			message += fmt.Sprintf("\n   %s", escapeMarkdownV2(r.Error))
		}
		message += "\n"
	}

	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}
