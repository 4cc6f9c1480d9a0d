// Package dispatch routes inbound chat events to handlers and renders the
// localized replies through a Transport.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/i18n"
	"tg_joke_bot/internal/logging"
	"tg_joke_bot/internal/metrics"
	"tg_joke_bot/internal/state"
	"tg_joke_bot/internal/stats"
)

// DefaultUsersLimit caps the admin users list when no limit is configured.
const DefaultUsersLimit = 20

// trackMessage is the command name recorded for free text.
const trackMessage = "message"

// Transport delivers replies to the chat.
type Transport interface {
	// Send posts a new message and returns its ID.
	Send(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error)
	// Edit replaces the text and keyboard of a message sent earlier.
	Edit(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error
	// AnswerCallback acknowledges a button press.
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Registrar records the interaction and command behind every event.
type Registrar interface {
	Register(ctx context.Context, identity stats.Identity, command string) (bool, error)
}

// StatsView is the part of the statistics store handlers read and update.
type StatsView interface {
	UserLanguage(userID int64) string
	SetUserLanguage(ctx context.Context, userID int64, lang string) error
	StatsSummary(lang string) string
	UsersList(lang string, limit int) string
}

// StateTracker holds per-user conversation state.
type StateTracker interface {
	SetState(userID int64, s state.State, ctx any) error
	// ConsumeJokePrompt atomically leaves AwaitingJokePrompt, reporting whether it was set.
	ConsumeJokePrompt(userID int64) bool
	ClearState(userID int64)
}

// Translator resolves localized text.
type Translator interface {
	Translate(key i18n.Key, lang string) string
	TranslateWith(key i18n.Key, lang string, data map[string]any) string
}

// JokeFetcher produces formatted jokes.
type JokeFetcher interface {
	FetchJoke(ctx context.Context, userText, lang string) (string, error)
}

// Counter receives event and failure counts.
type Counter interface {
	IncMessage(kind string)
	IncHandlerError(kind string)
}

// BotInfo is shown by the welcome, info and contact views. Email and GitHub
// are optional.
type BotInfo struct {
	Name      string
	Version   string
	Developer string
	Email     string
	GitHub    string
}

// Options wires a Dispatcher.
type Options struct {
	Transport  Transport
	Registrar  Registrar
	Stats      StatsView
	States     StateTracker
	Translator Translator
	Jokes      JokeFetcher
	Admins     domain.AdminList
	Counter    Counter
	Bot        BotInfo
	UsersLimit int
	Logger     *logrus.Entry
}

type (
	commandHandler  func(ctx context.Context, cmd Command, lang string) error
	callbackHandler func(ctx context.Context, cb Callback, lang string) error
)

// Dispatcher maps each inbound event to exactly one handler.
type Dispatcher struct {
	transport  Transport
	registrar  Registrar
	stats      StatsView
	states     StateTracker
	translator Translator
	jokes      JokeFetcher
	admins     domain.AdminList
	counter    Counter
	bot        BotInfo
	usersLimit int
	logger     *logrus.Entry

	commands  map[string]commandHandler
	callbacks map[string]callbackHandler
}

// New validates opts and builds the routing tables.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Transport == nil:
		return nil, errors.New("dispatch transport is required")
	case opts.Registrar == nil:
		return nil, errors.New("dispatch registrar is required")
	case opts.Stats == nil:
		return nil, errors.New("dispatch stats is required")
	case opts.States == nil:
		return nil, errors.New("dispatch state tracker is required")
	case opts.Translator == nil:
		return nil, errors.New("dispatch translator is required")
	case opts.Jokes == nil:
		return nil, errors.New("dispatch joke client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Component("dispatch")
	}
	limit := opts.UsersLimit
	if limit <= 0 {
		limit = DefaultUsersLimit
	}

	d := &Dispatcher{
		transport:  opts.Transport,
		registrar:  opts.Registrar,
		stats:      opts.Stats,
		states:     opts.States,
		translator: opts.Translator,
		jokes:      opts.Jokes,
		admins:     opts.Admins,
		counter:    opts.Counter,
		bot:        opts.Bot,
		usersLimit: limit,
		logger:     logger,
	}

	d.commands = map[string]commandHandler{
		"/start":    d.commandStart,
		"/help":     d.commandHelp,
		"/info":     d.commandInfo,
		"/contact":  d.commandContact,
		"/menu":     d.commandMenu,
		"/joke":     d.commandJoke,
		"/stats":    d.commandStats,
		"/admin":    d.commandAdmin,
		"/language": d.commandLanguage,
	}
	d.callbacks = map[string]callbackHandler{
		DataMenu:     d.callbackMenu,
		DataInfo:     d.callbackInfo,
		DataHelp:     d.callbackHelp,
		DataContact:  d.callbackContact,
		DataStats:    d.callbackStats,
		DataAdmin:    d.callbackAdmin,
		DataJoke:     d.callbackJoke,
		DataSettings: d.callbackSettings,
	}

	return d, nil
}

// Dispatch handles ev to completion. Handler errors and panics are logged and
// answered with the generic error view; nothing propagates to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if d == nil || ev == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	from := ev.sender()
	if from.ID == 0 || ev.chat() == 0 {
		d.logger.WithFields(logrus.Fields{
			"event":   "event_invalid",
			"kind":    eventKind(ev),
			"user_id": from.ID,
			"chat_id": ev.chat(),
		}).Warn("dropping event without user or chat")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, ev, "panic", fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	switch e := ev.(type) {
	case Command:
		err = d.handleCommand(ctx, e)
	case Callback:
		err = d.handleCallback(ctx, e)
	case TextMessage:
		err = d.handleText(ctx, e)
	default:
		d.logger.WithFields(logrus.Fields{
			"event": "event_unsupported",
			"type":  fmt.Sprintf("%T", ev),
		}).Warn("unsupported event type")
		return
	}

	if err != nil {
		d.fail(ctx, ev, "error", err)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, cmd Command) error {
	d.count(metrics.KindCommand)

	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	handler, ok := d.commands[name]
	if !ok {
		d.logEvent(cmd.From.ID, cmd.ChatID, "command_unknown", name).Debug("unknown command")
		d.track(ctx, cmd.From, trackMessage)
		lang := d.stats.UserLanguage(cmd.From.ID)
		return d.send(ctx, cmd.ChatID, d.translator.Translate(i18n.KeyTextHint, lang), d.jokeKeyboard(lang))
	}

	d.track(ctx, cmd.From, name)
	lang := d.stats.UserLanguage(cmd.From.ID)
	d.logEvent(cmd.From.ID, cmd.ChatID, "command_received", name).Debug("handling command")

	return handler(ctx, cmd, lang)
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb Callback) error {
	d.count(metrics.KindCallback)

	if err := d.transport.AnswerCallback(ctx, cb.ID); err != nil {
		d.logEvent(cb.From.ID, cb.ChatID, "callback_answer_failed", "").WithError(err).Warn("failed to answer callback")
	}

	data := strings.TrimSpace(cb.Data)
	handler, ok := d.callbacks[data]
	if !ok && strings.HasPrefix(data, LanguagePrefix) {
		handler, ok = d.callbackLanguage, true
	}
	if !ok {
		d.track(ctx, cb.From, "")
		d.logEvent(cb.From.ID, cb.ChatID, "callback_unknown", "").WithField("data", data).Warn("unknown callback data")
		return nil
	}

	command := data + "_callback"
	d.track(ctx, cb.From, command)
	lang := d.stats.UserLanguage(cb.From.ID)
	d.logEvent(cb.From.ID, cb.ChatID, "callback_received", command).Debug("handling callback")

	return handler(ctx, cb, lang)
}

func (d *Dispatcher) handleText(ctx context.Context, msg TextMessage) error {
	d.count(metrics.KindText)
	d.track(ctx, msg.From, trackMessage)
	lang := d.stats.UserLanguage(msg.From.ID)

	text := strings.TrimSpace(msg.Text)
	if text != "" && d.states.ConsumeJokePrompt(msg.From.ID) {
		d.logEvent(msg.From.ID, msg.ChatID, "joke_prompt_received", "").Debug("consuming joke prompt")
		return d.tellJoke(ctx, msg.ChatID, text, lang)
	}

	return d.send(ctx, msg.ChatID, d.translator.Translate(i18n.KeyTextHint, lang), d.jokeKeyboard(lang))
}

// track records the interaction. Failures are logged and never block the handler.
func (d *Dispatcher) track(ctx context.Context, from Sender, command string) {
	if _, err := d.registrar.Register(ctx, from.identity(), command); err != nil {
		d.logEvent(from.ID, 0, "track_failed", command).WithError(err).Error("failed to track interaction")
	}
}

// tellJoke sends a loading message and replaces it with the joke or with the
// joke error view.
func (d *Dispatcher) tellJoke(ctx context.Context, chatID int64, prompt, lang string) error {
	loadingID, err := d.transport.Send(ctx, chatID, d.translator.Translate(i18n.KeyJokeLoading, lang), nil)
	if err != nil {
		return fmt.Errorf("send loading message: %w", err)
	}

	joke, err := d.jokes.FetchJoke(ctx, prompt, lang)
	if err != nil {
		return d.edit(ctx, chatID, loadingID, d.translator.Translate(i18n.KeyErrorJoke, lang), d.errorKeyboard(lang))
	}

	return d.edit(ctx, chatID, loadingID, joke, d.jokeKeyboard(lang))
}

// fail renders the generic error view for ev.
func (d *Dispatcher) fail(ctx context.Context, ev Event, kind string, cause error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logrus.Fields{
				"event": "error_reply_panic",
				"panic": fmt.Sprint(r),
			}).Error("panic while rendering error reply")
		}
	}()

	from := ev.sender()
	if d.counter != nil {
		d.counter.IncHandlerError(kind)
	}
	d.logEvent(from.ID, ev.chat(), "handler_failed", "").
		WithFields(logrus.Fields{"kind": kind, "type": eventKind(ev)}).
		WithError(cause).
		Error("handler failed")

	lang := d.stats.UserLanguage(from.ID)
	text := d.translator.Translate(i18n.KeyErrorGeneric, lang)
	keyboard := d.errorKeyboard(lang)

	var err error
	if cb, ok := ev.(Callback); ok && cb.MessageID != 0 {
		err = d.edit(ctx, cb.ChatID, cb.MessageID, text, keyboard)
	} else {
		err = d.send(ctx, ev.chat(), text, keyboard)
	}
	if err != nil {
		d.logEvent(from.ID, ev.chat(), "error_reply_failed", "").WithError(err).Error("failed to send error reply")
	}
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	if _, err := d.transport.Send(ctx, chatID, text, keyboard); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (d *Dispatcher) edit(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error {
	if err := d.transport.Edit(ctx, chatID, messageID, text, keyboard); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// render replaces the message carrying the pressed keyboard, or sends a new
// one when that message is no longer accessible.
func (d *Dispatcher) render(ctx context.Context, cb Callback, text string, keyboard Keyboard) error {
	if cb.MessageID == 0 {
		return d.send(ctx, cb.ChatID, text, keyboard)
	}
	return d.edit(ctx, cb.ChatID, cb.MessageID, text, keyboard)
}

func (d *Dispatcher) count(kind string) {
	if d.counter != nil {
		d.counter.IncMessage(kind)
	}
}

func (d *Dispatcher) logEvent(userID, chatID int64, event, command string) *logrus.Entry {
	fields := logrus.Fields{"event": event}
	if userID != 0 {
		fields["user_id"] = userID
	}
	if chatID != 0 {
		fields["chat_id"] = chatID
	}
	if command != "" {
		fields["command"] = command
	}
	return d.logger.WithFields(fields)
}

func eventKind(ev Event) string {
	switch ev.(type) {
	case Command:
		return metrics.KindCommand
	case Callback:
		return metrics.KindCallback
	case TextMessage:
		return metrics.KindText
	default:
		return "unknown"
	}
}
