package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Violations maps a field name to a machine readable reason. A non-empty
// Violations value is returned as an error by services.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Err returns nil when there is nothing to report.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func Email(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		v[field] = "invalid_email"
	}
}

func MinLength(field, value string, n int, v Violations) {
	if len([]rune(value)) < n {
		v[field] = fmt.Sprintf("min_length_%d", n)
	}
}

func MaxLength(field, value string, n int, v Violations) {
	if len([]rune(value)) > n {
		v[field] = fmt.Sprintf("max_length_%d", n)
	}
}

// MaxBytes bounds the encoded size, for values handed to byte-limited
// algorithms such as bcrypt.
func MaxBytes(field, value string, n int, v Violations) {
	if len(value) > n {
		v[field] = fmt.Sprintf("max_bytes_%d", n)
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "not_allowed"
}

// Date checks a YYYY-MM-DD calendar date.
func Date(field, value string, v Violations) {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		v[field] = "invalid_date"
	}
}

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Clock checks a 24h HH:MM time of day.
func Clock(field, value string, v Violations) {
	if !clockRe.MatchString(value) {
		v[field] = "invalid_time"
	}
}
