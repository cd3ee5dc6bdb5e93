// Package telegram provides a client for sending analysis digests via Telegram Bot API.
// It formats scored games into human-readable messages and handles delivery
// with retry logic for reliability.
package telegram

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/signalfox/gamepulse/internal/models"
)

// Digest is one game's scoring summary for a notification message
type Digest struct {
	GameName  string
	Composite float64
	Grade     models.Grade
	Signals   []string
}

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

// SendDigest sends a notification with the highest-scoring games
func (c *Client) SendDigest(digests []Digest) error {
	if len(digests) == 0 {
		return nil
	}
	return c.send(formatDigest(digests))
}

// SendError notifies about repeated analysis cycle failures
func (c *Client) SendError(consecutiveFailures int, lastErr error) error {
	message := fmt.Sprintf("⚠️ *Analysis failing*\n\n%d consecutive cycle failures\\.\nLast error: %s",
		consecutiveFailures, escapeMarkdownV2(lastErr.Error()))
	return c.send(message)
}

// SendRecovery notifies that analysis cycles have recovered
func (c *Client) SendRecovery() error {
	return c.send("✅ *Analysis recovered*\n\nCycles are completing normally again\\.")
}

func (c *Client) send(message string) error {
	msg := tgbotapi.NewMessage(c.chatID, message)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatDigest formats scored games into a Telegram message
func formatDigest(digests []Digest) string {
	message := "🎮 *Market Signal Digest*\n\n"
	message += fmt.Sprintf("📅 %s\n\n", escapeMarkdownV2(time.Now().Format("2006-01-02 15:04")))

	for i, d := range digests {
		scoreStr := escapeMarkdownV2(fmt.Sprintf("%.1f", d.Composite))
		message += fmt.Sprintf("%d\\. *%s*\n", i+1, escapeMarkdownV2(d.GameName))
		message += fmt.Sprintf("   %s Grade *%s* \\(score %s\\)\n",
			gradeEmoji(d.Grade), escapeMarkdownV2(string(d.Grade)), scoreStr)

		for _, signal := range d.Signals {
			message += fmt.Sprintf("   • %s\n", escapeMarkdownV2(signal))
		}
		message += "\n"
	}

	return message
}

func gradeEmoji(grade models.Grade) string {
	switch grade {
	case models.GradeS:
		return "🔥"
	case models.GradeA:
		return "📈"
	default:
		return "📊"
	}
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
