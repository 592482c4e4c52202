package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultSlotDuration is how long a viewing is held for when the policy does
// not override it.
const DefaultSlotDuration = 45 * time.Minute

// ViewingSlot pairs the human-readable label offered to the prospect with
// the concrete local time it denotes.
type ViewingSlot struct {
	Label string
	Start time.Time
}

// NextWeekendSlots proposes the standard pair of viewing slots: the next
// upcoming Saturday afternoon and Sunday late morning in the given
// timezone. When now already falls on the weekday, the slot moves to the
// following week.
func NextWeekendSlots(now time.Time, loc *time.Location) []ViewingSlot {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return []ViewingSlot{
		{Label: "Saturday 3 PM", Start: nextWeekday(local, time.Saturday, 15)},
		{Label: "Sunday 11 AM", Start: nextWeekday(local, time.Sunday, 11)},
	}
}

func nextWeekday(local time.Time, day time.Weekday, hour int) time.Time {
	days := (int(day) - int(local.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := local.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, d.Location())
}

// MatchOfferedSlot picks the offered slot whose leading weekday token
// appears in the message, case-insensitively. With no match it falls back
// to the first offered slot.
func MatchOfferedSlot(message string, offered []string) (string, bool) {
	if len(offered) == 0 {
		return "", false
	}
	lower := strings.ToLower(message)
	for _, slot := range offered {
		token := strings.ToLower(firstToken(slot))
		if token != "" && strings.Contains(lower, token) {
			return slot, true
		}
	}
	return offered[0], true
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type slotWeekday struct {
	token string
	day   time.Weekday
}

// Full names before abbreviations so "saturday" is never read as "sat" plus
// noise, and a fixed order so resolution is deterministic.
var (
	slotWeekdays = []slotWeekday{
		{"sunday", time.Sunday},
		{"monday", time.Monday},
		{"tuesday", time.Tuesday},
		{"wednesday", time.Wednesday},
		{"thursday", time.Thursday},
		{"friday", time.Friday},
		{"saturday", time.Saturday},
		{"sun", time.Sunday},
		{"mon", time.Monday},
		{"tue", time.Tuesday},
		{"wed", time.Wednesday},
		{"thu", time.Thursday},
		{"fri", time.Friday},
		{"sat", time.Saturday},
	}
	slotHourPattern = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
)

// ResolveSlot turns a human-readable slot label like "Saturday 3 PM" into
// the concrete next occurrence after now in the given timezone. Heuristics:
// the first recognized weekday keyword picks the day, the first number picks
// the hour, and an AM/PM marker shifts it. A label with no parseable time
// defaults to 3 PM.
func ResolveSlot(label string, now time.Time, loc *time.Location, duration time.Duration) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.Local
	}
	if duration <= 0 {
		duration = DefaultSlotDuration
	}
	lower := strings.ToLower(label)

	var day time.Weekday
	found := false
	best := len(lower)
	for _, wd := range slotWeekdays {
		// Earliest occurrence in the label wins; full names are listed
		// before abbreviations, so ties go to the full name.
		if idx := strings.Index(lower, wd.token); idx >= 0 && idx < best {
			day = wd.day
			best = idx
			found = true
		}
	}
	if !found {
		return time.Time{}, time.Time{}, fmt.Errorf("conversation: no weekday in slot %q", label)
	}

	hour := 15
	if m := slotHourPattern.FindStringSubmatch(lower); m != nil && m[1] != "" {
		h, convErr := strconv.Atoi(m[1])
		if convErr == nil && h >= 0 && h <= 23 {
			switch m[3] {
			case "pm":
				if h < 12 {
					h += 12
				}
			case "am":
				if h == 12 {
					h = 0
				}
			}
			hour = h
		}
	}

	start = nextWeekday(now.In(loc), day, hour)
	return start, start.Add(duration), nil
}
