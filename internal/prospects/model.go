package prospects

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound indicates no prospect matched the lookup.
var ErrNotFound = errors.New("prospects: not found")

// Prospect is one WhatsApp contact a platform user is qualifying, keyed by
// phone number within that user.
type Prospect struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	LastContactAt time.Time `json:"last_contact_at"`
}

// DisplayName derives a readable placeholder name from the phone's last four
// digits when the contact has not shared one.
func DisplayName(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) >= 4 {
		return fmt.Sprintf("Prospect %s", digits[len(digits)-4:])
	}
	return "Prospect"
}
