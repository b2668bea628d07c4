// Package scoring holds the numeric rules of course grades and review
// competency scores.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/okian/hrdesk/internal/domain/form"
)

// Scale bounds a numeric grade or score.
type Scale struct {
	Min float64
	Max float64
	// Whole rejects fractional values.
	Whole bool
}

// Scales used by the console.
var (
	// GradeScale is the 0-20 course grade.
	GradeScale = Scale{Min: 0, Max: 20} //nolint:gochecknoglobals // read-only scale
	// ReviewScale is the 1-5 competency score.
	ReviewScale = Scale{Min: 1, Max: 5, Whole: true} //nolint:gochecknoglobals // read-only scale
)

// Unscored marks a review detail that has no score yet.
const Unscored = 0

// Check returns the message for v, or "" when v is on the scale.
func (s Scale) Check(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return form.MsgNumber
	case s.Whole && v != math.Trunc(v):
		return form.MsgNumber
	case v < s.Min:
		return form.MsgMin(s.Min)
	case v > s.Max:
		return form.MsgMax(s.Max)
	}
	return ""
}

// Parse reads a submitted value. Blank yields nil (no grade).
func (s Scale) Parse(raw string) (*float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, form.MsgNumber
	}
	if msg := s.Check(v); msg != "" {
		return nil, msg
	}
	return &v, ""
}

// CheckScore validates a review score. Unscored is accepted only when
// allowUnscored is set (drafts).
func CheckScore(score int, allowUnscored bool) string {
	if score == Unscored {
		if allowUnscored {
			return ""
		}
		return form.MsgRequired
	}
	return ReviewScale.Check(float64(score))
}

// Average is the mean of scored values rounded to two decimals. ok is false
// when nothing is scored.
func Average(scores []int) (avg float64, ok bool) {
	sum, n := 0, 0
	for _, s := range scores {
		if s > Unscored {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return Round2(float64(sum) / float64(n)), true
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
