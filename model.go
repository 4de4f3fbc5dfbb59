package currency

import "time"

type (
	// Rates is a point-in-time snapshot of exchange rates relative to Base.
	// Base itself is never present in the Rates map.
	Rates struct {
		Base      string
		Date      string
		Rates     map[string]float64
		Provider  Provider
		FetchedAt time.Time
	}

	// Conversion is the result of converting Amount from one currency into
	// another. ConvertedAmount is always Amount multiplied by Rate.
	Conversion struct {
		Amount          float64
		ConvertedAmount float64
		Rate            float64
		From            string
		To              string
		Date            string
		Provider        Provider
	}
)
