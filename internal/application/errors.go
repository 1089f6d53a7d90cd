package application

import "errors"

var ErrNoRatesFetched = errors.New("no rates fetched from any source")
var ErrRatesNotLoaded = errors.New("rates not loaded yet")
var ErrInvalidAmount = errors.New("amount must be positive")
var ErrConflict = errors.New("conflict")
