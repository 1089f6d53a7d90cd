package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// PairKey identifies a directed rate as "{FROM}_{TO}".
type PairKey string

var codeRe = regexp.MustCompile(`^[A-Z0-9]{2,5}$`)

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode normalizes code and checks it is 2-5 alphanumeric characters.
func ValidateCode(code string) (string, error) {
	c := NormalizeCode(code)
	if !codeRe.MatchString(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return c, nil
}

func NewPairKey(from, to string) PairKey {
	return PairKey(NormalizeCode(from) + "_" + NormalizeCode(to))
}

// Split returns the two codes of the key. ok is false when the key is malformed.
func (k PairKey) Split() (from, to string, ok bool) {
	from, to, found := strings.Cut(string(k), "_")
	if !found || !codeRe.MatchString(from) || !codeRe.MatchString(to) {
		return "", "", false
	}
	return from, to, true
}

func (k PairKey) Inverse() PairKey {
	from, to, ok := k.Split()
	if !ok {
		return k
	}
	return NewPairKey(to, from)
}

// ParsePairKey validates a raw "{FROM}_{TO}" string.
func ParsePairKey(raw string) (PairKey, error) {
	k := PairKey(strings.ToUpper(strings.TrimSpace(raw)))
	if _, _, ok := k.Split(); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPairKey, raw)
	}
	return k, nil
}
