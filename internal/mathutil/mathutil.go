// Package mathutil holds small number-theory and check-digit helpers.
package mathutil

import (
	"fmt"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

const (
	controlLength = 8
	idLength      = controlLength + 1
)

// IsPrime reports whether n is prime, by 6k±1 trial division.
func IsPrime(n int64) bool {
	return n > 1 && smallestFactor(n) == n
}

// IsAlmostPrime reports whether n is the product of exactly two primes
// (4, 6, 9, 10, ...).
func IsAlmostPrime(n int64) bool {
	if n < 4 {
		return false
	}
	p := smallestFactor(n)
	return p != n && IsPrime(n/p)
}

// smallestFactor returns the smallest prime factor of n > 1, n itself when
// n is prime. The bound is i <= n/i so that it cannot overflow.
func smallestFactor(n int64) int64 {
	if n%2 == 0 {
		return 2
	}
	if n%3 == 0 {
		return 3
	}
	for i := int64(5); i <= n/i; i += 6 {
		if n%i == 0 {
			return i
		}
		if n%(i+2) == 0 {
			return i + 2
		}
	}
	return n
}

// ControlDigit computes the check digit of an eight digit ID number.
// Digits are weighted 1, 2, 1, 2, ... and doubled digits contribute the sum
// of their own digits.
func ControlDigit(id string) (int, error) {
	if len(id) != controlLength {
		return 0, fmt.Errorf("%w: %q must have %d digits", apperrors.ErrInvalidIDNumber, id, controlLength)
	}

	total := 0
	for i, r := range id {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q contains a non-digit", apperrors.ErrInvalidIDNumber, id)
		}
		val := int(r - '0')
		if i%2 == 1 {
			val *= 2
			if val > 9 {
				val -= 9
			}
		}
		total += val
	}

	return (10 - total%10) % 10, nil
}

// AuditID reports whether a nine digit ID number ends with the control digit
// of its first eight digits.
func AuditID(id string) bool {
	if len(id) != idLength {
		return false
	}
	last := id[controlLength]
	if last < '0' || last > '9' {
		return false
	}
	digit, err := ControlDigit(id[:controlLength])
	if err != nil {
		return false
	}
	return digit == int(last-'0')
}
