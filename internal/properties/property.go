package properties

import (
	"strings"
	"time"
)

// Property is one rental listing tracked for a platform user.
type Property struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Title         string            `json:"title"`
	SourceURL     string            `json:"source_url,omitempty"`
	NormalizedURL string            `json:"normalized_url,omitempty"`
	Address       string            `json:"address,omitempty"`
	Facts         map[string]string `json:"facts,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Fact returns the named listing fact, or "" when unknown.
func (p *Property) Fact(key string) string {
	if p == nil || p.Facts == nil {
		return ""
	}
	return p.Facts[key]
}

// NormalizeURL canonicalizes a listing URL for duplicate detection by
// dropping the query string, fragment, and any trailing slash.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	return strings.ToLower(s)
}
