// Package voice extracts an appointment date and time from a transcribed
// French voice command such as "demain à 14h30" or "le 12 mars à midi".
package voice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoDateTime  = errors.New("no date or time found")
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time")
)

// Result holds the recognised slot. Date is YYYY-MM-DD and Heure HH:MM;
// either may be empty when the phrase does not mention it.
type Result struct {
	Date  string `json:"date,omitempty"`
	Heure string `json:"heure,omitempty"`
}

var months = map[string]time.Month{
	"janvier": time.January, "février": time.February, "fevrier": time.February,
	"mars": time.March, "avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "août": time.August, "aout": time.August,
	"septembre": time.September, "octobre": time.October, "novembre": time.November,
	"décembre": time.December, "decembre": time.December,
}

var weekdays = map[string]time.Weekday{
	"lundi": time.Monday, "mardi": time.Tuesday, "mercredi": time.Wednesday,
	"jeudi": time.Thursday, "vendredi": time.Friday, "samedi": time.Saturday,
	"dimanche": time.Sunday,
}

var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)
	namedDateRe   = regexp.MustCompile(`\b(\d{1,2}|1er)\s+(janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre)(?:\s+(\d{4}))?`)
	weekdayRe     = regexp.MustCompile(`\b(lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche)\b`)
	clockRe       = regexp.MustCompile(`\b(\d{1,2})\s*(?:heures?|h|:)\s*(\d{2})?\b`)
	noonRe        = regexp.MustCompile(`\b(midi|minuit)\b`)
)

// Parse reads a date and a time from text. Relative words resolve against
// now, in now's location.
func Parse(text string, now time.Time) (Result, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, "’", "'")

	var res Result
	date, err := parseDate(s, now)
	if err != nil {
		return Result{}, err
	}
	if !date.IsZero() {
		res.Date = date.Format("2006-01-02")
	}

	heure, err := parseClock(s)
	if err != nil {
		return Result{}, err
	}
	res.Heure = heure

	if res.Date == "" && res.Heure == "" {
		return Result{}, ErrNoDateTime
	}
	return res, nil
}

func parseDate(s string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(s, "après-demain") || strings.Contains(s, "apres-demain") || strings.Contains(s, "après demain"):
		return today.AddDate(0, 0, 2), nil
	case strings.Contains(s, "demain"):
		return today.AddDate(0, 0, 1), nil
	case strings.Contains(s, "aujourd'hui"):
		return today, nil
	}

	if m := namedDateRe.FindStringSubmatch(s); m != nil {
		day := 1
		if m[1] != "1er" {
			day, _ = strconv.Atoi(m[1])
		}
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return buildDate(today, day, months[m[2]], year)
	}

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		return buildDate(today, day, time.Month(month), year)
	}

	if m := weekdayRe.FindStringSubmatch(s); m != nil {
		diff := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
		if diff == 0 {
			diff = 7
		}
		return today.AddDate(0, 0, diff), nil
	}

	return time.Time{}, nil
}

// buildDate validates day/month. Without a year the next occurrence from
// today is used.
func buildDate(today time.Time, day int, month time.Month, year int) (time.Time, error) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %02d/%02d", ErrInvalidDate, day, month)
	}
	explicitYear := year != 0
	if !explicitYear {
		year = today.Year()
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	if d.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %02d/%02d/%d", ErrInvalidDate, day, month, year)
	}
	if !explicitYear && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, nil
}

func parseClock(s string) (string, error) {
	if m := clockRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if h > 23 || minute > 59 {
			return "", fmt.Errorf("%w: %s", ErrInvalidTime, strings.TrimSpace(m[0]))
		}
		return fmt.Sprintf("%02d:%02d", h, minute), nil
	}

	s = strings.ReplaceAll(s, "après-midi", "")
	s = strings.ReplaceAll(s, "apres-midi", "")
	if m := noonRe.FindStringSubmatch(s); m != nil {
		if m[1] == "midi" {
			return "12:00", nil
		}
		return "00:00", nil
	}
	return "", nil
}
