// Package daterange parses the --date-range CLI flag into a domain.DateRange.
package daterange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teammetrics/pulse/internal/domain"
)

const layout = "2006-01-02"

// The four recognized forms. Letters are matched case-insensitively; the
// canonical Label built by Parse always normalizes them ("7d", "Q2-2026").
var (
	reRelativeDays = regexp.MustCompile(`(?i)^(\d+)d$`)
	reYear         = regexp.MustCompile(`^(\d{4})$`)
	reQuarter      = regexp.MustCompile(`(?i)^q([1-4])-(\d{4})$`)
	reCustom       = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}):(\d{4}-\d{2}-\d{2})$`)
)

// Parse interprets raw as one of: "<N>d" (the N whole days ending at the
// start of now's UTC day; the current partial day is not included),
// "YYYY" (a full calendar year), "Q<1-4>-YYYY" (a calendar quarter), or
// "YYYY-MM-DD:YYYY-MM-DD" (an inclusive custom window). The result's Label
// is the canonical form of raw, and Start < End always holds (invariant 1).
func Parse(raw string, now time.Time) (domain.DateRange, error) {
	now = now.UTC()
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		return domain.DateRange{}, fmt.Errorf("%w: empty --date-range", domain.ErrInvalidRange)
	}

	if m := reRelativeDays.FindStringSubmatch(trimmed); m != nil {
		return parseRelativeDays(m[1], now)
	}

	if m := reYear.FindStringSubmatch(trimmed); m != nil {
		return parseYear(m[1])
	}

	if m := reQuarter.FindStringSubmatch(trimmed); m != nil {
		return parseQuarter(m[1], m[2])
	}

	if m := reCustom.FindStringSubmatch(trimmed); m != nil {
		return parseCustom(m[1], m[2])
	}

	return domain.DateRange{}, fmt.Errorf(
		"%w: %q matches no recognized form (<N>d, YYYY, Q<1-4>-YYYY, YYYY-MM-DD:YYYY-MM-DD)",
		domain.ErrInvalidRange, raw,
	)
}

func parseRelativeDays(digits string, now time.Time) (domain.DateRange, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: %q is not a valid day count", domain.ErrInvalidRange, digits)
	}

	if n <= 0 {
		return domain.DateRange{}, fmt.Errorf("%w: %dd must be positive", domain.ErrInvalidRange, n)
	}

	end := now.Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -n)

	return build(start, end, fmt.Sprintf("%dd", n)), nil
}

func parseYear(digits string) (domain.DateRange, error) {
	year, err := strconv.Atoi(digits)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: %q is not a valid year", domain.ErrInvalidRange, digits)
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	return build(start, end, digits), nil
}

func parseQuarter(qDigit, yearDigits string) (domain.DateRange, error) {
	q, err := strconv.Atoi(qDigit)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: %q is not a valid quarter", domain.ErrInvalidRange, qDigit)
	}

	year, err := strconv.Atoi(yearDigits)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: %q is not a valid year", domain.ErrInvalidRange, yearDigits)
	}

	startMonth := time.Month((q-1)*3 + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	return build(start, end, fmt.Sprintf("Q%d-%s", q, yearDigits)), nil
}

func parseCustom(startRaw, endRaw string) (domain.DateRange, error) {
	start, err := time.ParseInLocation(layout, startRaw, time.UTC)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid start date %q: %w", startRaw, err)
	}

	endDay, err := time.ParseInLocation(layout, endRaw, time.UTC)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid end date %q: %w", endRaw, err)
	}

	if endDay.Before(start) {
		return domain.DateRange{}, fmt.Errorf("%w: end %s is before start %s", domain.ErrInvalidRange, endRaw, startRaw)
	}

	// The custom form's end date is inclusive; the internal representation
	// is half-open, so the window closes at the start of the following day.
	end := endDay.AddDate(0, 0, 1)

	return build(start, end, fmt.Sprintf("%s:%s", startRaw, endRaw)), nil
}

func build(start, end time.Time, label string) domain.DateRange {
	return domain.DateRange{
		Start: start,
		End:   end,
		Label: label,
		Days:  int(end.Sub(start).Hours() / 24),
	}
}

// ApplyOffset shifts both ends of r back by offsetDays, the effective
// window adjustment a non-zero Environment.TimeOffsetDays applies to both
// the source-control and tracker collectors for a single run. Label and
// Days describe the range's shape, not its absolute position, so they
// carry over unchanged.
func ApplyOffset(r domain.DateRange, offsetDays int) domain.DateRange {
	if offsetDays == 0 {
		return r
	}

	shift := -time.Duration(offsetDays) * 24 * time.Hour
	shifted := r
	shifted.Start = r.Start.Add(shift)
	shifted.End = r.End.Add(shift)

	return shifted
}
