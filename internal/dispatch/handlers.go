package dispatch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/i18n"
	"tg_joke_bot/internal/state"
	"tg_joke_bot/internal/stats"
)

func (d *Dispatcher) commandStart(ctx context.Context, cmd Command, lang string) error {
	d.states.ClearState(cmd.From.ID)

	text := d.translator.TranslateWith(i18n.KeyWelcome, lang, map[string]any{
		"BotName":  html.EscapeString(d.bot.Name),
		"UserName": html.EscapeString(d.displayName(cmd.From, lang)),
	})
	return d.send(ctx, cmd.ChatID, text, d.mainMenu(lang, d.admins.IsAdmin(cmd.From.ID)))
}

func (d *Dispatcher) commandHelp(ctx context.Context, cmd Command, lang string) error {
	return d.send(ctx, cmd.ChatID, d.translator.Translate(i18n.KeyHelp, lang), d.mainMenu(lang, d.admins.IsAdmin(cmd.From.ID)))
}

func (d *Dispatcher) commandInfo(ctx context.Context, cmd Command, lang string) error {
	return d.send(ctx, cmd.ChatID, d.infoText(lang), d.mainMenu(lang, d.admins.IsAdmin(cmd.From.ID)))
}

func (d *Dispatcher) commandContact(ctx context.Context, cmd Command, lang string) error {
	return d.send(ctx, cmd.ChatID, d.contactText(lang), d.backKeyboard(lang))
}

func (d *Dispatcher) commandMenu(ctx context.Context, cmd Command, lang string) error {
	d.states.ClearState(cmd.From.ID)
	return d.send(ctx, cmd.ChatID, d.translator.Translate(i18n.KeyMenuTitle, lang), d.mainMenu(lang, d.admins.IsAdmin(cmd.From.ID)))
}

// commandJoke fetches a joke about the command arguments, or about the
// localized default prompt when there are none.
func (d *Dispatcher) commandJoke(ctx context.Context, cmd Command, lang string) error {
	prompt := strings.TrimSpace(cmd.Args)
	if prompt == "" {
		prompt = d.translator.Translate(i18n.KeyJokeDefaultPrompt, lang)
	}
	return d.tellJoke(ctx, cmd.ChatID, prompt, lang)
}

func (d *Dispatcher) commandStats(ctx context.Context, cmd Command, lang string) error {
	return d.send(ctx, cmd.ChatID, d.stats.StatsSummary(lang), d.statsKeyboard(lang))
}

func (d *Dispatcher) commandAdmin(ctx context.Context, cmd Command, lang string) error {
	if !d.admins.IsAdmin(cmd.From.ID) {
		return d.send(ctx, cmd.ChatID, d.translator.Translate(i18n.KeyErrorAccessDenied, lang), nil)
	}
	return d.send(ctx, cmd.ChatID, d.stats.UsersList(lang, d.usersLimit), d.adminKeyboard(lang))
}

func (d *Dispatcher) commandLanguage(ctx context.Context, cmd Command, lang string) error {
	return d.send(ctx, cmd.ChatID, d.translator.Translate(i18n.KeyLanguagePrompt, lang), d.languageKeyboard(lang))
}

func (d *Dispatcher) callbackMenu(ctx context.Context, cb Callback, lang string) error {
	d.states.ClearState(cb.From.ID)
	return d.render(ctx, cb, d.translator.Translate(i18n.KeyMenuTitle, lang), d.mainMenu(lang, d.admins.IsAdmin(cb.From.ID)))
}

func (d *Dispatcher) callbackInfo(ctx context.Context, cb Callback, lang string) error {
	return d.render(ctx, cb, d.infoText(lang), d.backKeyboard(lang))
}

func (d *Dispatcher) callbackHelp(ctx context.Context, cb Callback, lang string) error {
	return d.render(ctx, cb, d.translator.Translate(i18n.KeyHelp, lang), d.backKeyboard(lang))
}

func (d *Dispatcher) callbackContact(ctx context.Context, cb Callback, lang string) error {
	return d.render(ctx, cb, d.contactText(lang), d.backKeyboard(lang))
}

func (d *Dispatcher) callbackStats(ctx context.Context, cb Callback, lang string) error {
	return d.render(ctx, cb, d.stats.StatsSummary(lang), d.statsKeyboard(lang))
}

func (d *Dispatcher) callbackAdmin(ctx context.Context, cb Callback, lang string) error {
	if !d.admins.IsAdmin(cb.From.ID) {
		return d.render(ctx, cb, d.translator.Translate(i18n.KeyErrorAccessDenied, lang), d.backKeyboard(lang))
	}
	return d.render(ctx, cb, d.stats.UsersList(lang, d.usersLimit), d.adminKeyboard(lang))
}

// callbackJoke puts the user into AwaitingJokePrompt; the prompt message ID
// rides along as state context.
func (d *Dispatcher) callbackJoke(ctx context.Context, cb Callback, lang string) error {
	if err := d.states.SetState(cb.From.ID, state.AwaitingJokePrompt, cb.MessageID); err != nil {
		return fmt.Errorf("await joke prompt: %w", err)
	}
	return d.render(ctx, cb, d.translator.Translate(i18n.KeyJokePrompt, lang), d.backKeyboard(lang))
}

func (d *Dispatcher) callbackSettings(ctx context.Context, cb Callback, lang string) error {
	return d.render(ctx, cb, d.translator.Translate(i18n.KeyLanguagePrompt, lang), d.languageKeyboard(lang))
}

// callbackLanguage stores the language encoded after LanguagePrefix and
// confirms in the new language.
func (d *Dispatcher) callbackLanguage(ctx context.Context, cb Callback, lang string) error {
	code := domain.NormalizeLanguage(strings.TrimPrefix(strings.TrimSpace(cb.Data), LanguagePrefix))

	err := d.stats.SetUserLanguage(ctx, cb.From.ID, code)
	switch {
	case errors.Is(err, stats.ErrUnsupportedLanguage):
		return d.render(ctx, cb, d.translator.Translate(i18n.KeyErrorUnsupported, lang), d.languageKeyboard(lang))
	case err != nil:
		return fmt.Errorf("set language: %w", err)
	}

	d.logEvent(cb.From.ID, cb.ChatID, "language_changed", "").WithField("lang", code).Info("user language changed")

	text := d.translator.TranslateWith(i18n.KeyLanguageChanged, code, map[string]any{
		"Language": html.EscapeString(nativeLanguageName(code)),
	})
	return d.render(ctx, cb, text, d.mainMenu(code, d.admins.IsAdmin(cb.From.ID)))
}

func (d *Dispatcher) infoText(lang string) string {
	return d.translator.TranslateWith(i18n.KeyInfo, lang, map[string]any{
		"BotName":   html.EscapeString(d.bot.Name),
		"Version":   html.EscapeString(d.bot.Version),
		"Developer": html.EscapeString(d.bot.Developer),
	})
}

func (d *Dispatcher) contactText(lang string) string {
	return d.translator.TranslateWith(i18n.KeyContact, lang, map[string]any{
		"Developer": html.EscapeString(d.bot.Developer),
		"Email":     html.EscapeString(d.bot.Email),
		"GitHub":    html.EscapeString(d.bot.GitHub),
	})
}

func (d *Dispatcher) displayName(from Sender, lang string) string {
	name := strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
	if name == "" {
		return d.translator.Translate(i18n.KeyUsersNoName, lang)
	}
	return name
}
