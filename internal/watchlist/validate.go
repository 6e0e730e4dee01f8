package watchlist

import (
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"
)

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MaxSymbols bounds one scheduled refresh
const MaxSymbols = 50

// Yahoo tickers: letters, digits and . - ^ = (e.g. BRK-B, ^GSPC, EURUSD=X)
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,15}$`)

// scheduleParser matches the scheduler's cron.WithSeconds() format
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks the schedule and symbols. An empty schedule is allowed and
// means the configured default applies.
func Validate(f *File) error {
	if f.Schedule != "" {
		if _, err := scheduleParser.Parse(f.Schedule); err != nil {
			return ValidationError{"schedule", err.Error()}
		}
	}

	if len(f.Symbols) == 0 {
		return ValidationError{"symbols", "at least one symbol is required"}
	}
	if len(f.Symbols) > MaxSymbols {
		return ValidationError{"symbols", fmt.Sprintf("at most %d symbols, got %d", MaxSymbols, len(f.Symbols))}
	}

	seen := make(map[string]bool, len(f.Symbols))
	for i, s := range f.Symbols {
		field := fmt.Sprintf("symbols[%d]", i)
		if !symbolPattern.MatchString(s) {
			return ValidationError{field, fmt.Sprintf("invalid symbol %q", s)}
		}
		if seen[s] {
			return ValidationError{field, fmt.Sprintf("duplicate symbol %q", s)}
		}
		seen[s] = true
	}

	return nil
}
