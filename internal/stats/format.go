package stats

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/i18n"
)

const (
	// DateTimeLayout renders the last restart.
	DateTimeLayout = "02.01.2006 15:04:05 UTC"
	// DateLayout renders a user's last visit.
	DateLayout = "02.01 15:04"

	topCommandsLimit = 5
	recentWindow     = 24 * time.Hour
)

// StatsSummary renders the bot-wide statistics block in lang.
func (s *Store) StatsSummary(lang string) string {
	if s == nil {
		return ""
	}

	s.mu.Lock()
	now := s.now().UTC()
	bot := s.bot.Clone()
	recent := s.recentUsersLocked(now)
	s.mu.Unlock()

	t := func(key i18n.Key) string { return s.translator.Translate(key, lang) }

	lastRestart := t(i18n.KeyStatsUnknown)
	if !bot.LastRestart.IsZero() {
		lastRestart = bot.LastRestart.UTC().Format(DateTimeLayout)
	}

	uptime := t(i18n.KeyStatsUnknown)
	if !bot.StartTime.IsZero() {
		uptime = s.formatDuration(now.Sub(bot.StartTime.Time), lang)
	}

	var b strings.Builder
	b.WriteString(t(i18n.KeyStatsHeader))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", t(i18n.KeyStatsLastRestart), lastRestart)
	fmt.Fprintf(&b, "%s %s\n\n", t(i18n.KeyStatsUptime), uptime)

	b.WriteString(t(i18n.KeyStatsUsers))
	b.WriteString("\n")
	fmt.Fprintf(&b, "• %s %d\n", t(i18n.KeyStatsTotal), bot.TotalUsers)
	fmt.Fprintf(&b, "• %s %d\n\n", t(i18n.KeyStatsRecent), recent)

	b.WriteString(t(i18n.KeyStatsMessages))
	b.WriteString("\n")
	fmt.Fprintf(&b, "• %s %d\n", t(i18n.KeyStatsTotal), bot.TotalMessages)
	fmt.Fprintf(&b, "• %s %d\n\n", t(i18n.KeyStatsCommands), bot.TotalCommands)

	b.WriteString(t(i18n.KeyStatsTopCommands))
	b.WriteString("\n")
	top := bot.CommandsBreakdown.Top(topCommandsLimit)
	if len(top) == 0 {
		b.WriteString(t(i18n.KeyStatsNoData))
	}
	for i, entry := range top {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s: %d", html.EscapeString(entry.Command), entry.Count)
	}

	return b.String()
}

// UsersList renders up to limit profiles, most recently seen first. A
// non-positive limit renders the empty-list message.
func (s *Store) UsersList(lang string, limit int) string {
	if s == nil {
		return ""
	}

	t := func(key i18n.Key) string { return s.translator.Translate(key, lang) }

	s.mu.Lock()
	profiles := make([]domain.UserProfile, 0, len(s.users))
	for _, profile := range s.users {
		profiles = append(profiles, profile.Clone())
	}
	s.mu.Unlock()

	if limit <= 0 || len(profiles) == 0 {
		return t(i18n.KeyUsersNone)
	}

	sort.Slice(profiles, func(i, j int) bool {
		if !profiles[i].LastSeen.Equal(profiles[j].LastSeen.Time) {
			return profiles[i].LastSeen.After(profiles[j].LastSeen.Time)
		}
		return profiles[i].UserID < profiles[j].UserID
	})

	total := len(profiles)
	if len(profiles) > limit {
		profiles = profiles[:limit]
	}

	lines := []string{t(i18n.KeyUsersHeader), ""}
	for i, p := range profiles {
		name := p.DisplayName()
		if name == "" {
			name = t(i18n.KeyUsersNoName)
		}
		username := t(i18n.KeyUsersNoUsername)
		if p.Username != "" {
			username = "@" + p.Username
		}
		lastSeen := t(i18n.KeyStatsUnknown)
		if !p.LastSeen.IsZero() {
			lastSeen = p.LastSeen.UTC().Format(DateLayout)
		}

		lines = append(lines,
			fmt.Sprintf("%d. <b>%s</b> (%s)", i+1, html.EscapeString(name), html.EscapeString(username)),
			fmt.Sprintf("   %s <code>%d</code> | %s %s", t(i18n.KeyUsersID), p.UserID, t(i18n.KeyUsersLastVisit), lastSeen),
			fmt.Sprintf("   %s %d", t(i18n.KeyUsersMessages), p.MessageCount),
			"",
		)
	}

	if total > limit {
		lines = append(lines, s.translator.TranslateWith(i18n.KeyUsersMore, lang, map[string]any{"Count": total - limit}))
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// RecentUsers counts profiles seen within the last 24 hours.
func (s *Store) RecentUsers() int {
	if s == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentUsersLocked(s.now().UTC())
}

func (s *Store) recentUsersLocked(now time.Time) int {
	cutoff := now.Add(-recentWindow)
	recent := 0
	for _, profile := range s.users {
		// Zero means the stored value was unreadable.
		if profile.LastSeen.IsZero() {
			continue
		}
		if profile.LastSeen.After(cutoff) {
			recent++
		}
	}
	return recent
}

// formatDuration shows days, hours and minutes; hours and minutes; or minutes
// and seconds, depending on the largest nonzero unit.
func (s *Store) formatDuration(d time.Duration, lang string) string {
	if d < 0 {
		d = 0
	}

	t := func(key i18n.Key) string { return s.translator.Translate(key, lang) }

	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%d%s %d%s %d%s", days, t(i18n.KeyDurationDays), hours, t(i18n.KeyDurationHours), minutes, t(i18n.KeyDurationMinutes))
	case hours > 0:
		return fmt.Sprintf("%d%s %d%s", hours, t(i18n.KeyDurationHours), minutes, t(i18n.KeyDurationMinutes))
	default:
		return fmt.Sprintf("%d%s %d%s", minutes, t(i18n.KeyDurationMinutes), seconds, t(i18n.KeyDurationSeconds))
	}
}
