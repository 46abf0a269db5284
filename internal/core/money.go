// Package core provides the domain records, validated inputs and money handling.
//
// Amounts are integers in minor currency units everywhere: storage, API
// payloads and advice messages. Decimal conversion exists only for ratio
// comparisons.
package core

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m minus o. The result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Decimal returns the amount as an exact decimal in minor units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents)
}

// String renders the raw minor-unit integer, e.g. "25000".
func (m Money) String() string {
	return strconv.FormatInt(m.Cents, 10)
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}
