package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfData signals that the market-data stream is exhausted. It ends
	// a run normally and is not a fault.
	ErrEndOfData = errors.New("end of market data")

	// ErrDuplicateOrderID is returned by SubmitOrder when an open order with
	// the same id already exists.
	ErrDuplicateOrderID = errors.New("duplicate order id")

	// ErrInvalidSide is returned by SubmitOrder for a side other than Bid or Ask.
	ErrInvalidSide = errors.New("invalid order side")
)

// ConfigError reports an invalid construction parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
