package i18n

// Key identifies a localized message. Keys are stable identifiers and never
// carry display text themselves.
type Key string

// Conversation views.
const (
	KeyWelcome           Key = "welcome"
	KeyHelp              Key = "help"
	KeyInfo              Key = "info"
	KeyContact           Key = "contact"
	KeyMenuTitle         Key = "menu_title"
	KeyTextHint          Key = "text_hint"
	KeyJokePrompt        Key = "joke_prompt"
	KeyJokeLoading       Key = "joke_loading"
	KeyJokeHeading       Key = "joke_heading"
	KeyJokeDefaultPrompt Key = "joke_default_prompt"
	KeyLanguagePrompt    Key = "language_prompt"
	KeyLanguageChanged   Key = "language_changed"
)

// Error views.
const (
	KeyErrorGeneric      Key = "error_generic"
	KeyErrorJoke         Key = "error_joke"
	KeyErrorAccessDenied Key = "error_access_denied"
	KeyErrorUnsupported  Key = "error_unsupported_language"
)

// Buttons.
const (
	KeyButtonStats       Key = "button_stats"
	KeyButtonSettings    Key = "button_settings"
	KeyButtonJoke        Key = "button_joke"
	KeyButtonAbout       Key = "button_about"
	KeyButtonHelp        Key = "button_help"
	KeyButtonContact     Key = "button_contact"
	KeyButtonMenu        Key = "button_menu"
	KeyButtonRefresh     Key = "button_refresh"
	KeyButtonTryAgain    Key = "button_try_again"
	KeyButtonAnotherJoke Key = "button_another_joke"
	KeyButtonBackToMenu  Key = "button_back_to_menu"
	KeyButtonAdmin       Key = "button_admin"
)

// Statistics summary.
const (
	KeyStatsHeader      Key = "stats_header"
	KeyStatsLastRestart Key = "stats_last_restart"
	KeyStatsUptime      Key = "stats_uptime"
	KeyStatsUsers       Key = "stats_users"
	KeyStatsTotal       Key = "stats_total"
	KeyStatsRecent      Key = "stats_recent"
	KeyStatsMessages    Key = "stats_messages"
	KeyStatsCommands    Key = "stats_commands"
	KeyStatsTopCommands Key = "stats_top_commands"
	KeyStatsNoData      Key = "stats_no_data"
	KeyStatsUnknown     Key = "stats_unknown"
	KeyDurationDays     Key = "duration_days"
	KeyDurationHours    Key = "duration_hours"
	KeyDurationMinutes  Key = "duration_minutes"
	KeyDurationSeconds  Key = "duration_seconds"
)

// Users list.
const (
	KeyUsersHeader     Key = "users_header"
	KeyUsersNone       Key = "users_none"
	KeyUsersNoName     Key = "users_no_name"
	KeyUsersNoUsername Key = "users_no_username"
	KeyUsersID         Key = "users_id"
	KeyUsersLastVisit  Key = "users_last_visit"
	KeyUsersMessages   Key = "users_messages"
	KeyUsersMore       Key = "users_more"
)

// AllKeys lists every key a complete locale table is expected to define.
var AllKeys = []Key{
	KeyWelcome, KeyHelp, KeyInfo, KeyContact, KeyMenuTitle, KeyTextHint,
	KeyJokePrompt, KeyJokeLoading, KeyJokeHeading, KeyJokeDefaultPrompt,
	KeyLanguagePrompt, KeyLanguageChanged,
	KeyErrorGeneric, KeyErrorJoke, KeyErrorAccessDenied, KeyErrorUnsupported,
	KeyButtonStats, KeyButtonSettings, KeyButtonJoke, KeyButtonAbout, KeyButtonHelp,
	KeyButtonContact, KeyButtonMenu, KeyButtonRefresh, KeyButtonTryAgain, KeyButtonAnotherJoke,
	KeyButtonBackToMenu, KeyButtonAdmin,
	KeyStatsHeader, KeyStatsLastRestart, KeyStatsUptime, KeyStatsUsers, KeyStatsTotal,
	KeyStatsRecent, KeyStatsMessages, KeyStatsCommands, KeyStatsTopCommands,
	KeyStatsNoData, KeyStatsUnknown,
	KeyDurationDays, KeyDurationHours, KeyDurationMinutes, KeyDurationSeconds,
	KeyUsersHeader, KeyUsersNone, KeyUsersNoName, KeyUsersNoUsername, KeyUsersID,
	KeyUsersLastVisit, KeyUsersMessages, KeyUsersMore,
}
