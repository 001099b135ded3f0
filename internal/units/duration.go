package units

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

// DurationUnit is a named span of time.
type DurationUnit string

// Duration units.
const (
	Seconds DurationUnit = "seconds"
	Minutes DurationUnit = "minutes"
	Hours   DurationUnit = "hours"
	Days    DurationUnit = "days"
	Weeks   DurationUnit = "weeks"
)

var durationUnits = map[DurationUnit]time.Duration{
	Seconds: time.Second,
	Minutes: time.Minute,
	Hours:   time.Hour,
	Days:    24 * time.Hour,
	Weeks:   7 * 24 * time.Hour,
}

// ParseDurationUnit parses a unit name, case-insensitively.
func ParseDurationUnit(s string) (DurationUnit, error) {
	unit := DurationUnit(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := durationUnits[unit]; !ok {
		return "", fmt.Errorf("%w: duration unit %q (want seconds, minutes, hours, days or weeks)", apperrors.ErrInvalidUnit, s)
	}
	return unit, nil
}

// Duration returns the length of one unit, zero for an unknown unit.
func (u DurationUnit) Duration() time.Duration {
	return durationUnits[u]
}

// ConvertDuration converts value from one unit to another.
func ConvertDuration(value float64, from, to DurationUnit) float64 {
	return value * from.Duration().Seconds() / to.Duration().Seconds()
}

// FormatDuration converts value and formats it as "%.2f unit".
func FormatDuration(value float64, from, to DurationUnit) string {
	return fmt.Sprintf("%.2f %s", ConvertDuration(value, from, to), to)
}

// DescribeDuration formats the whole conversion, e.g. "2 hours = 120.00 minutes".
func DescribeDuration(value float64, from, to DurationUnit) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + string(from) + " = " + FormatDuration(value, from, to)
}
