package core

import "errors"

const (
	RWF Currency = "rwf"
	USD Currency = "usd"
	EUR Currency = "eur"
)

// Currency is a display currency code. Values are always persisted in the
// base currency (RWF); conversion happens only at presentation time.
type Currency string

var ErrUnknownCurrency = errors.New("unknown currency")

// Static exchange-rate table relative to the base currency. No live rates.
var exchangeRates = map[Currency]float64{
	RWF: 1,
	USD: 0.0008,  // approx 1250 RWF = 1 USD
	EUR: 0.00074, // approx 1350 RWF = 1 EUR
}

func (c Currency) Valid() bool {
	_, ok := exchangeRates[c]
	return ok
}

// Convert projects a value from one display currency to another through the
// base currency. Round-trips are consistent for the fixed rate table.
func Convert(value float64, from, to Currency) (float64, error) {
	fromRate, ok := exchangeRates[from]
	if !ok {
		return 0, ErrUnknownCurrency
	}
	toRate, ok := exchangeRates[to]
	if !ok {
		return 0, ErrUnknownCurrency
	}
	if from == to {
		return value, nil
	}
	inBase := value / fromRate
	return inBase * toRate, nil
}
