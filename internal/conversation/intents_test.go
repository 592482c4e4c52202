package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"check https://www.propertyguru.com.sg/listing/123?src=wa out", "https://www.propertyguru.com.sg/listing/123?src=wa"},
		{"http://99.co/rent/x", "http://99.co/rent/x"},
		{"no link here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractURL(tt.text), "text %q", tt.text)
	}
}

func TestLastURLInHistory(t *testing.T) {
	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "see https://example.com/a"},
		{Role: ChatRoleAssistant, Content: "sure"},
		{Role: ChatRoleUser, Content: "actually https://example.com/b"},
	}
	assert.Equal(t, "https://example.com/b", LastURLInHistory(history))
	assert.Equal(t, "", LastURLInHistory(nil))
}

func TestIsPropertyQuestion(t *testing.T) {
	yes := []string{
		"what's the monthly rent?",
		"how big is the floor area",
		"is it furnished?",
		"how far from the MRT",
		"when is it available",
		"2 bed or 3?",
	}
	for _, s := range yes {
		assert.True(t, IsPropertyQuestion(s), "expected property question: %q", s)
	}
	assert.False(t, IsPropertyQuestion("thanks, talk soon"))
}

func TestShowsListingInterest(t *testing.T) {
	assert.True(t, ShowsListingInterest("I'm interested in the condo"))
	assert.True(t, ShowsListingInterest("about that flat you posted"))
	assert.False(t, ShowsListingInterest("hello"))
}

func TestIsBookingAffirmation(t *testing.T) {
	assert.True(t, IsBookingAffirmation("sure, book it"))
	assert.True(t, IsBookingAffirmation("sounds good"))
	assert.False(t, IsBookingAffirmation("hmm"))
}

func TestMentionsDayOrTime(t *testing.T) {
	assert.True(t, MentionsDayOrTime("Saturday at 3"))
	assert.True(t, MentionsDayOrTime("around 7pm"))
	assert.False(t, MentionsDayOrTime("whenever"))
}

func TestQuestionCategories(t *testing.T) {
	got := QuestionCategories("What's the rent and is it furnished?")
	assert.ElementsMatch(t, []string{"price", "furnishing"}, got)

	assert.Empty(t, QuestionCategories("hello"))
}
