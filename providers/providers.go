package providers

import (
	"context"
	"io"
	"net/http"
)

const (
	ExchangeRateAPIURL = "https://v6.exchangerate-api.com/v6"
	FixerURL           = "https://data.fixer.io/api"
	FastForexURL       = "https://api.fastforex.io"
)

// submitRequest performs a GET against url and hands back the status code
// and raw body. Error payloads come back with non-2xx statuses, so decoding
// is left to the provider.
func submitRequest(ctx context.Context, client *http.Client, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return 0, nil, err
	}

	req.Header.Add("Accept", "application/json")

	res, err := client.Do(req)

	if err != nil {
		return 0, nil, err
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)

	if err != nil {
		return 0, nil, err
	}

	return res.StatusCode, body, nil
}

func filterSymbols(rates map[string]float64, symbols []string) map[string]float64 {
	if len(symbols) == 0 {
		return rates
	}

	filtered := make(map[string]float64, len(symbols))

	for _, symbol := range symbols {
		if pairRate, ok := rates[symbol]; ok {
			filtered[symbol] = pairRate
		}
	}

	return filtered
}
