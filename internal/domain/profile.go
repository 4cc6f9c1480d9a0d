package domain

// UserProfile is the persisted identity and usage record of a single chat user.
// MessageCount and CommandsUsed are counted independently, so MessageCount is not
// guaranteed to be at least the sum of CommandsUsed.
type UserProfile struct {
	UserID       int64         `json:"user_id"`
	Username     string        `json:"username"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	FirstSeen    Timestamp     `json:"first_seen"`
	LastSeen     Timestamp     `json:"last_seen"`
	MessageCount int           `json:"message_count"`
	CommandsUsed CommandCounts `json:"commands_used"`
	Language     string        `json:"language,omitempty"`
}

// DisplayName joins first and last name, returning an empty string when both are unset.
func (p UserProfile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Clone returns a deep copy that shares no counters with p.
func (p UserProfile) Clone() UserProfile {
	p.CommandsUsed = p.CommandsUsed.Clone()
	return p
}

// BotAggregate holds the bot-wide counters. StartTime is set once on the first
// ever initialization; LastRestart is reset on every process start.
type BotAggregate struct {
	StartTime         Timestamp     `json:"start_time"`
	LastRestart       Timestamp     `json:"last_restart"`
	TotalUsers        int           `json:"total_users"`
	TotalMessages     int           `json:"total_messages"`
	TotalCommands     int           `json:"total_commands"`
	CommandsBreakdown CommandCounts `json:"commands_breakdown"`
}

// Clone returns a deep copy that shares no counters with a.
func (a BotAggregate) Clone() BotAggregate {
	a.CommandsBreakdown = a.CommandsBreakdown.Clone()
	return a
}

// Snapshot is the full persisted statistics state. Bot is nil when no aggregate
// has ever been stored.
type Snapshot struct {
	Users map[int64]UserProfile
	Bot   *BotAggregate
}
