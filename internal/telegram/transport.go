package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_joke_bot/internal/dispatch"
	"tg_joke_bot/internal/logging"
)

const errNotModified = "message is not modified"

var _ dispatch.Transport = (*Client)(nil)

// Send posts an HTML message with an optional inline keyboard.
func (c *Client) Send(ctx context.Context, chatID int64, text string, keyboard dispatch.Keyboard) (int, error) {
	if c == nil || c.bot == nil {
		return 0, errors.New("telegram client is not initialized")
	}

	msg, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: inlineMarkup(keyboard),
	})
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// Edit replaces a message in place. Edits that change nothing are not errors.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, keyboard dispatch.Keyboard) error {
	if c == nil || c.bot == nil {
		return errors.New("telegram client is not initialized")
	}

	_, err := c.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: inlineMarkup(keyboard),
	})
	if err != nil {
		if strings.Contains(err.Error(), errNotModified) {
			c.logger.WithFields(logging.Fields{
				"event":      "telegram_edit_unchanged",
				"chat_id":    chatID,
				"message_id": messageID,
			}).Debug("message is not modified")
			return nil
		}
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AnswerCallback stops the loading indicator on the pressed button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if c == nil || c.bot == nil {
		return errors.New("telegram client is not initialized")
	}

	if _, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	}); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func inlineMarkup(keyboard dispatch.Keyboard) models.ReplyMarkup {
	if len(keyboard) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
