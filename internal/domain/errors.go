package domain

import "errors"

var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrInvalidPairKey  = errors.New("invalid pair key")
	ErrInvalidRate     = errors.New("rate must be positive")
	ErrRateUnavailable = errors.New("rate unavailable")
)
