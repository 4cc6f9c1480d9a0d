package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AdminList is the static set of user IDs allowed to run privileged actions.
// The zero value grants nobody access.
type AdminList struct {
	ids map[int64]struct{}
}

// NewAdminList builds an allow-list from ids, ignoring zeros.
func NewAdminList(ids ...int64) AdminList {
	list := AdminList{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		list.ids[id] = struct{}{}
	}
	return list
}

// ParseAdminList parses a comma-separated list of user IDs. Blank entries are skipped.
func ParseAdminList(raw string) (AdminList, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return AdminList{}, fmt.Errorf("parse admin user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return NewAdminList(ids...), nil
}

// IsAdmin reports whether userID is on the allow-list.
func (l AdminList) IsAdmin(userID int64) bool {
	_, ok := l.ids[userID]
	return ok
}

// Len returns the number of admins.
func (l AdminList) Len() int {
	return len(l.ids)
}

// IDs returns the admin IDs in ascending order.
func (l AdminList) IDs() []int64 {
	out := make([]int64, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
