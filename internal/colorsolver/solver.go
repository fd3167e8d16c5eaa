// Package colorsolver reproduces the string hash the colorization engine
// uses to pick a color bucket for a regex line, and searches for a salt that
// steers a line into a chosen bucket.
//
// The hash is a fixed external contract. It must stay bit-for-bit identical,
// including int32 wraparound, or predicted buckets stop matching the colors
// the editor actually shows.
package colorsolver

import (
	"strconv"
	"unicode/utf16"

	"github.com/Iron-Ham/tabtint/internal/errors"
)

// Buckets is the number of color slots lines are hashed into.
const Buckets = 16

// MaxSalt is the highest salt tried before giving up.
const MaxSalt = 10000

const (
	hashSeed       int32 = 5381
	hashMultiplier int32 = 1566083941
)

// Hash returns the legacy 32-bit string hash of s.
//
// Two accumulators seeded at 5381 take alternating UTF-16 code units,
// each step computing ((acc<<5)+acc) ^ c. A NUL code unit ends the input,
// as it does for the engine's null-terminated strings.
func Hash(s string) int32 {
	units := utf16.Encode([]rune(s))

	acc1, acc2 := hashSeed, hashSeed
	for i := 0; i < len(units); i += 2 {
		c := int32(units[i])
		if c == 0 {
			break
		}
		acc1 = ((acc1 << 5) + acc1) ^ c

		if i+1 >= len(units) {
			break
		}
		c = int32(units[i+1])
		if c == 0 {
			break
		}
		acc2 = ((acc2 << 5) + acc2) ^ c
	}
	return acc1 + acc2*hashMultiplier
}

// Bucket returns the color bucket the engine assigns to s.
func Bucket(s string) int {
	h := int64(Hash(s))
	if h < 0 {
		h = -h
	}
	return int(h % Buckets)
}

// Annotation returns the inert suffix embedding salt. It is an inline
// regex comment, so it changes the hash of a line but not what it matches.
func Annotation(salt int) string {
	return "(?#salt:" + strconv.Itoa(salt) + ")"
}

// Solve returns the smallest salt in 1..MaxSalt for which base plus its
// annotation lands in target. It reports false when target is out of range
// or no salt within the ceiling works; callers then keep the unsalted line.
func Solve(base string, target int) (int, bool) {
	if target < 0 || target >= Buckets {
		return 0, false
	}
	for salt := 1; salt <= MaxSalt; salt++ {
		if Bucket(base+Annotation(salt)) == target {
			return salt, true
		}
	}
	return 0, false
}

// Salted returns the line to write for base so that it is colored with
// colorIndex. A base that already lands there is returned unchanged, as is
// one that cannot be solved.
func Salted(base string, colorIndex int) string {
	line, err := SaltedLine(base, colorIndex)
	if err != nil {
		return base
	}
	return line
}

// SaltedLine is Salted for callers that need to know when the line could
// not be steered. An out-of-range index is an ErrInvalidInput validation
// error; an exhausted search wraps ErrUnsolved.
func SaltedLine(base string, colorIndex int) (string, error) {
	if colorIndex < 0 || colorIndex >= Buckets {
		return "", errors.NewValidationError("color index out of range").
			WithField("color_index").WithValue(colorIndex)
	}
	if Bucket(base) == colorIndex {
		return base, nil
	}
	salt, ok := Solve(base, colorIndex)
	if !ok {
		return "", errors.Wrapf(errors.ErrUnsolved, "no salt up to %d puts %q in bucket %d", MaxSalt, base, colorIndex)
	}
	return base + Annotation(salt), nil
}
