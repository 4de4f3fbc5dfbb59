package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/subtrackr/currency"
)

type (
	exchangeRateAPI struct {
		cfg        currency.Config
		httpClient *http.Client
	}

	// See https://www.exchangerate-api.com/docs/standard-requests. The v6
	// endpoint reports errors as result="error" plus an error-type string.
	exchangeRateAPIResponse struct {
		Result             string             `json:"result"`
		ErrorType          string             `json:"error-type"`
		BaseCode           string             `json:"base_code"`
		TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
		ConversionRates    map[string]float64 `json:"conversion_rates"`
	}
)

// NewExchangeRateAPI builds a provider for exchangerate-api.com.
func NewExchangeRateAPI(cfg currency.Config, logger zerolog.Logger) (currency.RateProvider, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = ExchangeRateAPIURL
	}

	f := &exchangeRateAPI{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}

	return newClient(cfg, f, nil, logger), nil
}

func (e *exchangeRateAPI) identity() currency.Provider {
	return currency.ExchangeRateAPI
}

func (e *exchangeRateAPI) fetchLatest(ctx context.Context, base string, symbols []string) (*currency.Rates, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", e.cfg.BaseURL, e.cfg.APIKey, base)

	status, body, err := submitRequest(ctx, e.httpClient, url)

	if err != nil {
		return nil, err
	}

	var res exchangeRateAPIResponse

	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &currency.Error{
			Kind:     currency.KindNetwork,
			Provider: e.identity(),
			Message:  fmt.Sprintf("status %d with unparseable body", status),
			Err:      err,
		}
	}

	if res.Result != "success" {
		return nil, e.mapError(res.ErrorType, status)
	}

	rates := filterSymbols(res.ConversionRates, symbols)
	delete(rates, base)

	return &currency.Rates{
		Base:      base,
		Date:      time.Unix(res.TimeLastUpdateUnix, 0).UTC().Format("2006-01-02"),
		Rates:     rates,
		Provider:  e.identity(),
		FetchedAt: time.Now(),
	}, nil
}

func (e *exchangeRateAPI) mapError(errorType string, status int) error {
	message := fmt.Sprintf("error-type %q (status %d)", errorType, status)

	switch errorType {
	case "invalid-key", "inactive-account":
		return &currency.Error{Kind: currency.KindAuthentication, Provider: e.identity(), Message: message, Err: currency.ErrInvalidAPIKey}
	case "unsupported-code":
		return &currency.Error{Kind: currency.KindValidation, Provider: e.identity(), Message: message, Err: currency.ErrUnsupportedCurrency}
	case "malformed-request":
		return &currency.Error{Kind: currency.KindValidation, Provider: e.identity(), Message: message, Err: currency.ErrInvalidBaseCurrency}
	case "quota-reached":
		return &currency.Error{Kind: currency.KindPermission, Provider: e.identity(), Message: message, Err: currency.ErrRateLimitExceeded}
	}

	return &currency.Error{Kind: currency.KindUnexpected, Provider: e.identity(), Message: message}
}
