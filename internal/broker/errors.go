package broker

import (
	"errors"
	"fmt"
)

// TransientFeedError marks a quote or candle fetch that failed or came back
// with a non-OK status. The caller retries on the next cycle.
type TransientFeedError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *TransientFeedError) Error() string {
	return fmt.Sprintf("%s %s: transient feed failure: %v", e.Op, e.Symbol, e.Err)
}

func (e *TransientFeedError) Unwrap() error { return e.Err }

// MissingInstrumentError marks a symbol that could not be resolved to a
// broker token.
type MissingInstrumentError struct {
	Symbol string
}

func (e *MissingInstrumentError) Error() string {
	return fmt.Sprintf("instrument %s not found", e.Symbol)
}

// OrderRejectedError marks an order the broker refused or never acknowledged.
type OrderRejectedError struct {
	Symbol string
	Side   Side
	Qty    int
	Reason string
	Err    error
}

func (e *OrderRejectedError) Error() string {
	msg := fmt.Sprintf("order %s %d %s rejected", e.Side, e.Qty, e.Symbol)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OrderRejectedError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var target *TransientFeedError
	return errors.As(err, &target)
}

func IsMissingInstrument(err error) bool {
	var target *MissingInstrumentError
	return errors.As(err, &target)
}

func IsOrderRejected(err error) bool {
	var target *OrderRejectedError
	return errors.As(err, &target)
}
