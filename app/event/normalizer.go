package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
	"github.com/denizkarakus123/EventHive-backend/app/extract"
)

var (
	ErrUnparseableDate = errors.New("unparseable day field")
	ErrUnparseableTime = errors.New("unparseable time tokens")
)

// Time-parse failure policies for step 4 of the fallback chain.
const (
	TimeParseFallback = "fallback"
	TimeParseDrop     = "drop"
)

// Time tokens that mean "no usable time": the event falls back to date-only.
var vagueTimeTokens = map[string]struct{}{
	"late": {},
	"tbd":  {},
}

// Normalizer resolves a candidate's free-text date/time fields into
// canonical start/end instants.
type Normalizer struct {
	onTimeParseError string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{onTimeParseError: cfg.Get().OnTimeParseError}
}

// Normalize evaluates the fallback chain in order, short-circuiting on the
// first matching branch:
//
//  1. Parse the Day field with a permissive natural-language parser;
//     unparseable input drops the record.
//  2. Full-day events resolve to the start of that day.
//  3. A missing or vague time token resolves to the start of that day.
//  4. Both tokens parse strictly as 24-hour HH:MM against the day; strict
//     failure falls back to date-only unless the drop policy is configured.
func (n *Normalizer) Normalize(candidate *extract.Candidate) (time.Time, time.Time, error) {
	parsed, err := dateparse.ParseAny(candidate.Day)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, candidate.Day)
	}
	day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)

	if candidate.FullDay() {
		return day, day, nil
	}

	if isVagueOrMissing(candidate.StartTime) || isVagueOrMissing(candidate.EndTime) {
		return day, day, nil
	}

	start, startErr := parseClockTime(day, candidate.StartTime)
	end, endErr := parseClockTime(day, candidate.EndTime)
	if startErr != nil || endErr != nil {
		if n.onTimeParseError == TimeParseDrop {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q / %q", ErrUnparseableTime, candidate.StartTime, candidate.EndTime)
		}
		return day, day, nil
	}

	return start, end, nil
}

func isVagueOrMissing(token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return true
	}
	_, vague := vagueTimeTokens[token]
	return vague
}

func parseClockTime(day time.Time, token string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
