package conversation

import (
	"regexp"
	"strings"
)

// Intent detection is deliberately lightweight keyword matching. Each intent
// lives behind a named predicate so a classifier could replace any of them
// without touching routing logic.

var (
	urlPattern = regexp.MustCompile(`https?://[\w\-._~:/?#\[\]@!$&'()*+,;=%]+`)

	propertyQuestionPattern = regexp.MustCompile(`(?i)price|rent|budget|cost|monthly|size|sqft|area|floor\s?area|bed|bath|furnish|furnished|unfurnished|address|where|location|mrt|distance|available|move[-\s]?in|ready|floor\s?plan`)

	interestPattern = regexp.MustCompile(`(?i)interested|listing|unit|apartment|condo|flat`)

	bookingAffirmationPattern = regexp.MustCompile(`(?i)yes|sure|okay|ok|sounds good|book|schedule`)

	dayOrTimePattern = regexp.MustCompile(`(?i)saturday|sunday|mon|tue|wed|thu|fri|pm|am|\d`)
)

// ExtractURL returns the first URL in the text, or "".
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}

// LastURLInHistory scans the transcript newest-first for a URL.
func LastURLInHistory(history []ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if u := urlPattern.FindString(history[i].Content); u != "" {
			return u
		}
	}
	return ""
}

// IsPropertyQuestion reports whether the message asks about listing
// attributes such as price, size, or availability.
func IsPropertyQuestion(text string) bool {
	return propertyQuestionPattern.MatchString(text)
}

// ShowsListingInterest reports generic interest phrasing without a concrete
// link.
func ShowsListingInterest(text string) bool {
	return interestPattern.MatchString(text)
}

// IsBookingAffirmation reports agreement or explicit booking language.
func IsBookingAffirmation(text string) bool {
	return bookingAffirmationPattern.MatchString(text)
}

// MentionsDayOrTime reports day-of-week, AM/PM, or numeric time tokens.
func MentionsDayOrTime(text string) bool {
	return dayOrTimePattern.MatchString(text)
}

// QuestionCategories returns the attribute categories a property question
// touches, used to filter which listing facts ground the reply.
func QuestionCategories(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, c := range factCategories {
		if c.pattern.MatchString(lower) {
			out = append(out, c.name)
		}
	}
	return out
}

type factCategory struct {
	name    string
	pattern *regexp.Regexp
}

var factCategories = []factCategory{
	{"price", regexp.MustCompile(`price|rent|budget|cost|monthly`)},
	{"size", regexp.MustCompile(`size|sqft|floor\s?area`)},
	{"bedrooms", regexp.MustCompile(`bed`)},
	{"bathrooms", regexp.MustCompile(`bath`)},
	{"furnishing", regexp.MustCompile(`furnish`)},
	{"address", regexp.MustCompile(`address|where|location|mrt|distance`)},
	{"availability", regexp.MustCompile(`available|move[-\s]?in|ready`)},
}
