// Package units converts byte sizes and durations between units and
// formats numbers for display.
package units

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

// ByteUnit is a binary (base 1024) byte unit.
type ByteUnit int

// Byte units, each 1024 times the previous one.
const (
	B ByteUnit = iota
	KB
	MB
	GB
	TB
	PB
)

const byteBase = 1024

var byteUnitNames = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

// String returns the unit symbol.
func (u ByteUnit) String() string {
	if u < B || u > PB {
		return fmt.Sprintf("ByteUnit(%d)", int(u))
	}
	return byteUnitNames[u]
}

// ParseByteUnit parses a unit symbol, case-insensitively.
func ParseByteUnit(s string) (ByteUnit, error) {
	for i, name := range byteUnitNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return ByteUnit(i), nil
		}
	}
	return B, fmt.Errorf("%w: byte unit %q (want one of %s)", apperrors.ErrInvalidUnit, s, strings.Join(byteUnitNames[:], ", "))
}

// ConvertBytes converts value from one unit to another.
func ConvertBytes(value float64, from, to ByteUnit) float64 {
	return value * math.Pow(byteBase, float64(from-to))
}

// HumanizeBytes expresses value in the largest unit, from `from` up to PB,
// that keeps it below 1024.
func HumanizeBytes(value float64, from ByteUnit) (float64, ByteUnit) {
	unit := from
	for unit < PB && math.Abs(value) >= byteBase {
		value /= byteBase
		unit++
	}
	return value, unit
}

// FormatBytes formats value, given in unit from, as "%.2f UNIT". An empty
// target picks the unit with HumanizeBytes.
func FormatBytes(value float64, from ByteUnit, target string) (string, error) {
	if target == "" {
		converted, unit := HumanizeBytes(value, from)
		return fmt.Sprintf("%.2f %s", converted, unit), nil
	}

	to, err := ParseByteUnit(target)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f %s", ConvertBytes(value, from, to), to), nil
}

// Size formats a file size for listings ("1.2 kB").
func Size(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}
