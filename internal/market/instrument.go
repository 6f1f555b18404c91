package market

import (
	"fmt"
	"strconv"
	"strings"
)

type OptionType string

const (
	OptionCall OptionType = "C"
	OptionPut  OptionType = "P"
)

func (o OptionType) Valid() bool {
	return o == OptionCall || o == OptionPut
}

// Instrument is a resolved option contract. Values are immutable once the
// broker token is known; pass by value.
type Instrument struct {
	Symbol     string     `json:"symbol"`
	Underlying string     `json:"underlying"`
	Strike     int        `json:"strike"`
	OptionType OptionType `json:"option_type"`
	LotSize    int        `json:"lot_size"`
	Token      string     `json:"token"`
	Exchange   string     `json:"exchange"`
}

// OptionSymbol builds the exchange trading symbol, e.g. NIFTY25NOV25C24000.
func OptionSymbol(underlying, expiry string, typ OptionType, strike int) string {
	return strings.ToUpper(underlying) + strings.ToUpper(expiry) + string(typ) + strconv.Itoa(strike)
}

func (i Instrument) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return fmt.Errorf("instrument symbol is empty")
	}
	if strings.TrimSpace(i.Token) == "" {
		return fmt.Errorf("instrument %s has no broker token", i.Symbol)
	}
	if !i.OptionType.Valid() {
		return fmt.Errorf("instrument %s has invalid option type %q", i.Symbol, i.OptionType)
	}
	if i.LotSize <= 0 {
		return fmt.Errorf("instrument %s lot size must be > 0", i.Symbol)
	}
	return nil
}

func (i Instrument) String() string {
	return i.Symbol
}
