package debate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"debatearena/models"
)

const maxSuggestions = 3

// FeedbackReason says which content bound was violated.
type FeedbackReason string

const (
	ReasonTooLong  FeedbackReason = "too_long"
	ReasonTooShort FeedbackReason = "too_short"
)

// ContentFeedback explains why an argument was rejected.
type ContentFeedback struct {
	Reason      FeedbackReason
	RoundType   models.RoundType
	Length      int
	Limit       int
	Message     string
	Suggestions []string
}

var overLimitHints = map[models.RoundType][]string{
	models.RoundOpening: {
		"Lead with your single strongest claim",
		"Cut background the audience already knows",
		"Save secondary evidence for the rebuttal round",
	},
	models.RoundRebuttal: {
		"Answer your opponent's central point first",
		"Drop responses to minor points",
		"Reference the opposing argument briefly instead of restating it",
	},
	models.RoundClosing: {
		"Summarize instead of introducing new evidence",
		"State in one or two sentences why your side prevails",
		"Remove points already made in earlier rounds",
	},
}

var underLimitHints = []string{
	"State a clear claim about the resolution",
	"Support it with at least one reason or example",
	"Explain why it matters to the audience",
}

// ValidateContent checks an argument against the round type's length bounds.
// Length is counted in characters, not bytes. ok is false when the content is
// rejected, in which case fb says why.
func (p Policy) ValidateContent(rt models.RoundType, content string) (fb ContentFeedback, ok bool) {
	limit := p.LimitFor(rt)
	length := utf8.RuneCountInString(content)

	if trimmed := utf8.RuneCountInString(strings.TrimSpace(content)); trimmed < p.MinArgumentLength {
		return ContentFeedback{
			Reason:      ReasonTooShort,
			RoundType:   rt,
			Length:      trimmed,
			Limit:       p.MinArgumentLength,
			Message:     fmt.Sprintf("%s argument must contain at least %d non-blank characters.", titleCase(rt), p.MinArgumentLength),
			Suggestions: firstN(underLimitHints, maxSuggestions),
		}, false
	}

	if length > limit {
		return ContentFeedback{
			Reason:      ReasonTooLong,
			RoundType:   rt,
			Length:      length,
			Limit:       limit,
			Message:     fmt.Sprintf("%s argument exceeds the %d character limit by %d characters.", titleCase(rt), limit, length-limit),
			Suggestions: firstN(overLimitHints[rt], maxSuggestions),
		}, false
	}

	return ContentFeedback{}, true
}

// contentError turns validator feedback into the single user-facing error.
func contentError(fb ContentFeedback) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     fb.Message,
		Suggestions: fb.Suggestions,
	}
}

func titleCase(rt models.RoundType) string {
	s := string(rt)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return append([]string(nil), items...)
}
