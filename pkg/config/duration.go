package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration wraps time.Duration so it can be loaded from either a plain Go
// duration string ("2s") or an ISO-8601 duration fragment ("PT2S"), since
// operators coming from the admin UI's JSON layer tend to write the latter.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// ParseDuration accepts a Go duration string or an ISO-8601 "PT..." fragment.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if !strings.HasPrefix(s, "PT") && !strings.HasPrefix(s, "pt") {
		return time.ParseDuration(s)
	}
	return parseISO8601Fragment(s[2:])
}

// parseISO8601Fragment parses the time-of-day part of an ISO-8601 duration
// (the part after "PT"): a sequence of <number><unit> where unit is one of
// H, M, S (S may carry a fractional component, e.g. "1.5S").
func parseISO8601Fragment(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid ISO-8601 duration fragment: no components after \"PT\"")
	}
	var (
		total time.Duration
		num   strings.Builder
	)
	unitFor := func(r byte) (time.Duration, bool) {
		switch r {
		case 'H', 'h':
			return time.Hour, true
		case 'M', 'm':
			return time.Minute, true
		case 'S', 's':
			return time.Second, true
		default:
			return 0, false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			num.WriteByte(c)
			continue
		}
		unit, ok := unitFor(c)
		if !ok {
			return 0, fmt.Errorf("invalid ISO-8601 duration fragment %q: unknown unit %q", s, c)
		}
		if num.Len() == 0 {
			return 0, fmt.Errorf("invalid ISO-8601 duration fragment %q: unit %q without a number", s, c)
		}
		v, err := strconv.ParseFloat(num.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration fragment %q: %w", s, err)
		}
		total += time.Duration(v * float64(unit))
		num.Reset()
	}
	if num.Len() != 0 {
		return 0, fmt.Errorf("invalid ISO-8601 duration fragment %q: trailing number with no unit", s)
	}
	return total, nil
}
