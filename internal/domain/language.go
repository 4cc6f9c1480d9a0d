// Package domain defines shared domain constants and types.
package domain

import "strings"

const (
	// LanguageUkrainian is the Ukrainian language code and the stock default.
	LanguageUkrainian = "uk"
	// LanguageEnglish is the English language code.
	LanguageEnglish = "en"
	// LanguagePolish is the Polish language code.
	LanguagePolish = "pl"
)

// SupportedLanguages lists the language codes the bot can speak, in menu order.
var SupportedLanguages = []string{LanguageUkrainian, LanguageEnglish, LanguagePolish}

// NormalizeLanguage lowercases and trims a language code.
func NormalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// IsSupportedLanguage reports whether code names one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	code = NormalizeLanguage(code)
	for _, supported := range SupportedLanguages {
		if code == supported {
			return true
		}
	}
	return false
}
