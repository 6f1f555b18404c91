package broker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("connection reset")
	transient := fmt.Errorf("cycle: %w", &TransientFeedError{Symbol: "X", Op: "quote", Err: base})
	missing := fmt.Errorf("resolve: %w", &MissingInstrumentError{Symbol: "Y"})
	rejected := &OrderRejectedError{Symbol: "Z", Side: SideSell, Qty: 75, Reason: "RMS: margin"}

	assert.True(t, IsTransient(transient))
	assert.False(t, IsTransient(missing))
	assert.ErrorIs(t, transient, base)

	assert.True(t, IsMissingInstrument(missing))
	assert.False(t, IsMissingInstrument(rejected))

	assert.True(t, IsOrderRejected(rejected))
	assert.False(t, IsOrderRejected(transient))
	assert.Equal(t, "order S 75 Z rejected: RMS: margin", rejected.Error())
}
