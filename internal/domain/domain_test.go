package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCommandCountsTopKeepsFirstSeenOrderOnTies(t *testing.T) {
	var counts CommandCounts
	counts.Inc("/start")
	counts.Inc("/help")
	counts.Inc("/joke")
	counts.Inc("/joke")
	counts.Inc("/help")
	counts.Inc("/info")

	top := counts.Top(3)
	want := []CommandCount{{"/help", 2}, {"/joke", 2}, {"/start", 1}}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i := range want {
		if top[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], top[i])
		}
	}
	if counts.Total() != 6 {
		t.Fatalf("expected total 6, got %d", counts.Total())
	}
	if counts.Len() != 4 {
		t.Fatalf("expected 4 distinct commands, got %d", counts.Len())
	}
}

func TestCommandCountsJSONPreservesKeyOrder(t *testing.T) {
	input := `{"zeta":3,"alpha":1,"mid":2}`

	var counts CommandCounts
	if err := json.Unmarshal([]byte(input), &counts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := json.Marshal(counts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != input {
		t.Fatalf("expected %s, got %s", input, out)
	}
}

func TestCommandCountsUnmarshalRejectsNonObject(t *testing.T) {
	var counts CommandCounts
	if err := json.Unmarshal([]byte(`[1,2]`), &counts); err == nil {
		t.Fatalf("expected error for array input")
	}
}

func TestCommandCountsCloneIsIndependent(t *testing.T) {
	original := NewCommandCounts(CommandCount{Command: "/start", Count: 1})
	clone := original.Clone()
	clone.Inc("/start")

	if original.Get("/start") != 1 {
		t.Fatalf("expected original to stay at 1, got %d", original.Get("/start"))
	}
	if clone.Get("/start") != 2 {
		t.Fatalf("expected clone to be 2, got %d", clone.Get("/start"))
	}
}

func TestTimestampAcceptsStoredForms(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	cases := map[string]string{
		"offset": `"2024-03-01T14:30:00+02:00"`,
		"zulu":   `"2024-03-01T12:30:00Z"`,
		"naive":  `"2024-03-01T12:30:00.000000"`,
		"space":  `"2024-03-01 12:30:00"`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(raw), &ts); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !ts.Equal(want) {
				t.Fatalf("expected %v, got %v", want, ts.Time)
			}
			if ts.Location() != time.UTC {
				t.Fatalf("expected UTC location, got %v", ts.Location())
			}
		})
	}
}

func TestTimestampUnparseableLoadsAsZero(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ts.IsZero() {
		t.Fatalf("expected zero time, got %v", ts.Time)
	}
}

func TestTimestampMarshalsUTC(t *testing.T) {
	local := time.Date(2024, 3, 1, 14, 30, 0, 0, time.FixedZone("EET", 2*3600))
	out, err := json.Marshal(NewTimestamp(local))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2024-03-01T12:30:00Z"` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestUserProfileDisplayName(t *testing.T) {
	cases := []struct {
		profile UserProfile
		want    string
	}{
		{UserProfile{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{UserProfile{FirstName: "Ada"}, "Ada"},
		{UserProfile{LastName: "Lovelace"}, "Lovelace"},
		{UserProfile{}, ""},
	}

	for _, tc := range cases {
		if got := tc.profile.DisplayName(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestParseAdminList(t *testing.T) {
	list, err := ParseAdminList(" 42, ,7,42 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !list.IsAdmin(42) || !list.IsAdmin(7) {
		t.Fatalf("expected 42 and 7 to be admins, got %v", list.IDs())
	}
	if list.IsAdmin(1) {
		t.Fatalf("expected 1 not to be admin")
	}
	if list.Len() != 2 {
		t.Fatalf("expected 2 admins, got %d", list.Len())
	}

	if _, err := ParseAdminList("42,abc"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}

	var empty AdminList
	if empty.IsAdmin(42) {
		t.Fatalf("zero AdminList must grant nobody")
	}
}

func TestIsSupportedLanguage(t *testing.T) {
	for _, code := range []string{"uk", "EN", " pl "} {
		if !IsSupportedLanguage(code) {
			t.Fatalf("expected %q to be supported", code)
		}
	}
	if IsSupportedLanguage("de") {
		t.Fatalf("expected de to be unsupported")
	}
}
