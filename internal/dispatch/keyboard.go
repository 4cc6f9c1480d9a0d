package dispatch

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/i18n"
)

// Callback data understood by the dispatcher.
const (
	DataMenu     = "menu"
	DataInfo     = "info"
	DataHelp     = "help"
	DataContact  = "contact"
	DataStats    = "stats"
	DataAdmin    = "admin"
	DataJoke     = "joke"
	DataSettings = "settings"

	// LanguagePrefix marks language selection; the suffix is the language code.
	LanguagePrefix = "lang_"
)

// Button is an inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Button

func (d *Dispatcher) button(key i18n.Key, data, lang string) Button {
	return Button{Text: d.translator.Translate(key, lang), Data: data}
}

// mainMenu is the root keyboard; admins get an extra row for the users list.
func (d *Dispatcher) mainMenu(lang string, admin bool) Keyboard {
	rows := Keyboard{
		{d.button(i18n.KeyButtonStats, DataStats, lang), d.button(i18n.KeyButtonSettings, DataSettings, lang)},
		{d.button(i18n.KeyButtonJoke, DataJoke, lang), d.button(i18n.KeyButtonAbout, DataInfo, lang)},
		{d.button(i18n.KeyButtonHelp, DataHelp, lang), d.button(i18n.KeyButtonContact, DataContact, lang)},
	}
	if admin {
		rows = append(rows, []Button{d.button(i18n.KeyButtonAdmin, DataAdmin, lang)})
	}
	return rows
}

func (d *Dispatcher) backKeyboard(lang string) Keyboard {
	return Keyboard{{d.button(i18n.KeyButtonBackToMenu, DataMenu, lang)}}
}

func (d *Dispatcher) statsKeyboard(lang string) Keyboard {
	return Keyboard{{d.button(i18n.KeyButtonRefresh, DataStats, lang), d.button(i18n.KeyButtonMenu, DataMenu, lang)}}
}

func (d *Dispatcher) adminKeyboard(lang string) Keyboard {
	return Keyboard{
		{d.button(i18n.KeyButtonRefresh, DataAdmin, lang), d.button(i18n.KeyButtonStats, DataStats, lang)},
		{d.button(i18n.KeyButtonMenu, DataMenu, lang)},
	}
}

func (d *Dispatcher) jokeKeyboard(lang string) Keyboard {
	return Keyboard{{d.button(i18n.KeyButtonAnotherJoke, DataJoke, lang), d.button(i18n.KeyButtonMenu, DataMenu, lang)}}
}

func (d *Dispatcher) errorKeyboard(lang string) Keyboard {
	return Keyboard{{d.button(i18n.KeyButtonTryAgain, DataJoke, lang), d.button(i18n.KeyButtonMenu, DataMenu, lang)}}
}

func (d *Dispatcher) languageKeyboard(lang string) Keyboard {
	row := make([]Button, 0, len(domain.SupportedLanguages))
	for _, code := range domain.SupportedLanguages {
		row = append(row, Button{Text: nativeLanguageName(code), Data: LanguagePrefix + code})
	}
	return Keyboard{row, {d.button(i18n.KeyButtonBackToMenu, DataMenu, lang)}}
}

// nativeLanguageName returns the name of code in that language, e.g. "polski".
func nativeLanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
