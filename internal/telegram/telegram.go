// Package telegram connects the Telegram Bot API to the event dispatcher.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_joke_bot/internal/config"
	"tg_joke_bot/internal/dispatch"
	"tg_joke_bot/internal/logging"
)

// defaultWorkers is the number of updates handled concurrently so a slow
// joke request does not hold up other chats.
const defaultWorkers = 4

type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// EventHandler receives the converted updates.
type EventHandler interface {
	Dispatch(ctx context.Context, ev dispatch.Event)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance and logging dependencies. It is also
// the dispatch.Transport replies go through.
type Client struct {
	bot     botAPI
	logger  *logrus.Entry
	handler EventHandler
}

// NewClient initializes the Telegram bot with long polling and default handlers.
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
		bot.WithWorkers(defaultWorkers),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	return client, nil
}

// Handle sets the receiver of inbound events. Call it before Start.
func (c *Client) Handle(handler EventHandler) {
	c.handler = handler
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
		"workers":         defaultWorkers,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	meta := extractUpdateMeta(update)

	fields := logging.Fields{
		"event":       "telegram_update",
		"update_type": meta.updateType,
	}
	if meta.userID != 0 {
		fields["user_id"] = meta.userID
	}
	if meta.chatID != 0 {
		fields["chat_id"] = meta.chatID
	}

	ev, ok := toEvent(update)
	if !ok {
		c.logger.WithFields(fields).Debug("telegram update ignored")
		return
	}
	c.logger.WithFields(fields).Debug("telegram update received")

	if c.handler == nil {
		c.logger.WithFields(fields).WithField("event", "telegram_unhandled").Warn("no event handler registered")
		return
	}

	c.handler.Dispatch(ctx, ev)
}

type updateMeta struct {
	userID     int64
	chatID     int64
	updateType string
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     update.Message.Chat.ID,
			updateType: "message",
		}
	case update.CallbackQuery != nil:
		chat, _ := callbackMessage(update.CallbackQuery.Message)
		return updateMeta{
			userID:     update.CallbackQuery.From.ID,
			chatID:     chat,
			updateType: "callback_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

// toEvent converts an update into a dispatch event. Messages without text or
// sender are not events.
func toEvent(update *models.Update) (dispatch.Event, bool) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return nil, false
		}
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return nil, false
		}

		from := sender(msg.From)
		if strings.HasPrefix(text, "/") {
			name, args := parseCommand(text)
			return dispatch.Command{From: from, ChatID: msg.Chat.ID, Name: name, Args: args}, true
		}
		return dispatch.TextMessage{From: from, ChatID: msg.Chat.ID, Text: text}, true
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		chat, messageID := callbackMessage(query.Message)
		return dispatch.Callback{
			From:      sender(&query.From),
			ID:        query.ID,
			ChatID:    chat,
			MessageID: messageID,
			Data:      query.Data,
		}, true
	default:
		return nil, false
	}
}

// parseCommand splits "/Joke@my_bot about cats" into "/joke" and "about cats".
func parseCommand(text string) (string, string) {
	name, args, _ := strings.Cut(text, " ")
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

func sender(user *models.User) dispatch.Sender {
	return dispatch.Sender{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func callbackMessage(msg models.MaybeInaccessibleMessage) (int64, int) {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0, 0
		}
		return msg.Message.Chat.ID, msg.Message.ID
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0, 0
		}
		return msg.InaccessibleMessage.Chat.ID, msg.InaccessibleMessage.MessageID
	default:
		return 0, 0
	}
}
