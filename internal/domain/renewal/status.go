// Package renewal classifies policies into renewal states for the renewal
// report.  Every run reclassifies from scratch.
package renewal

import (
	"regexp"
	"strings"
)

// Status is the text-derived renewal state.
type Status string

const (
	StatusRenewed    Status = "renewed"
	StatusNotRenewed Status = "not-renewed"
	StatusUpcoming   Status = "upcoming-renewal"
)

// Statuses lists every state in report order.
var Statuses = []Status{StatusRenewed, StatusNotRenewed, StatusUpcoming}

var separators = regexp.MustCompile(`[\s_-]+`)

// NormalizeStatus lowercases the text and collapses _, - and whitespace runs
// to single spaces.
func NormalizeStatus(text string) string {
	return strings.TrimSpace(separators.ReplaceAllString(strings.ToLower(text), " "))
}

// ClassifyStatus maps free-text status to a Status.  Anything without an
// affirmative renewal signal is not-renewed.
func ClassifyStatus(text string) Status {
	s := NormalizeStatus(text)
	compact := strings.ReplaceAll(s, " ", "")
	hasNot := strings.Contains(s, "not")
	hasRenewed := strings.Contains(s, "renewed")

	switch {
	case strings.Contains(compact, "upcoming"):
		return StatusUpcoming
	case hasNot && hasRenewed:
		return StatusNotRenewed
	case hasRenewed:
		return StatusRenewed
	default:
		// "not ...", "expired", "cancelled" and unrecognized text.
		return StatusNotRenewed
	}
}
