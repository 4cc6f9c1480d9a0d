package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// CommandCount is a single command name and how many times it was used.
type CommandCount struct {
	Command string `json:"command" bson:"command"`
	Count   int    `json:"count" bson:"count"`
}

// CommandCounts counts command usage and remembers the order in which commands
// were first seen. The zero value is ready to use.
type CommandCounts struct {
	order  []string
	counts map[string]int
}

// NewCommandCounts builds counters from pairs, keeping their order. Repeated
// names are summed.
func NewCommandCounts(pairs ...CommandCount) CommandCounts {
	var c CommandCounts
	for _, pair := range pairs {
		c.Add(pair.Command, pair.Count)
	}
	return c
}

// Inc adds one use of command and returns the new count.
func (c *CommandCounts) Inc(command string) int {
	return c.Add(command, 1)
}

// Add adds n uses of command and returns the new count.
func (c *CommandCounts) Add(command string, n int) int {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[command]; !ok {
		c.order = append(c.order, command)
	}
	c.counts[command] += n
	return c.counts[command]
}

// Get returns the count for command, zero when never used.
func (c CommandCounts) Get(command string) int {
	return c.counts[command]
}

// Len returns the number of distinct commands.
func (c CommandCounts) Len() int {
	return len(c.order)
}

// Total sums every count.
func (c CommandCounts) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Entries lists the counters in first-seen order.
func (c CommandCounts) Entries() []CommandCount {
	out := make([]CommandCount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, CommandCount{Command: name, Count: c.counts[name]})
	}
	return out
}

// Top returns at most n counters by descending count. Ties keep first-seen order.
func (c CommandCounts) Top(n int) []CommandCount {
	entries := c.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Clone returns an independent copy.
func (c CommandCounts) Clone() CommandCounts {
	return NewCommandCounts(c.Entries()...)
}

// MarshalJSON writes a JSON object whose keys follow first-seen order.
func (c CommandCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", c.counts[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the key order of the document.
func (c *CommandCounts) UnmarshalJSON(data []byte) error {
	*c = CommandCounts{}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read command counts: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("command counts must be an object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read command name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("command name must be a string, got %v", keyTok)
		}

		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("read count for %q: %w", name, err)
		}
		c.Add(name, count)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close command counts: %w", err)
	}

	return nil
}
