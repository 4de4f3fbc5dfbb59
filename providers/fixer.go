package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/subtrackr/currency"
)

type (
	fixer struct {
		cfg        currency.Config
		httpClient *http.Client
	}

	// fixer.io responds 200 even on failures; success=false carries a
	// numeric error code (https://fixer.io/documentation).
	fixerResponse struct {
		Success bool               `json:"success"`
		Base    string             `json:"base"`
		Date    string             `json:"date"`
		Rates   map[string]float64 `json:"rates"`
		Error   struct {
			Code int    `json:"code"`
			Type string `json:"type"`
		} `json:"error"`
	}
)

// NewFixer builds a provider for fixer.io style APIs.
func NewFixer(cfg currency.Config, logger zerolog.Logger) (currency.RateProvider, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = FixerURL
	}

	f := &fixer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}

	return newClient(cfg, f, nil, logger), nil
}

func (f *fixer) identity() currency.Provider {
	return currency.Fixer
}

func (f *fixer) fetchLatest(ctx context.Context, base string, symbols []string) (*currency.Rates, error) {
	q := url.Values{}
	q.Add("access_key", f.cfg.APIKey)
	q.Add("base", base)

	if len(symbols) > 0 {
		q.Add("symbols", strings.Join(symbols, ","))
	}

	status, body, err := submitRequest(ctx, f.httpClient, fmt.Sprintf("%s/latest?%s", f.cfg.BaseURL, q.Encode()))

	if err != nil {
		return nil, err
	}

	var res fixerResponse

	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &currency.Error{
			Kind:     currency.KindNetwork,
			Provider: f.identity(),
			Message:  fmt.Sprintf("status %d with unparseable body", status),
			Err:      err,
		}
	}

	if !res.Success {
		return nil, f.mapError(res.Error.Code, res.Error.Type)
	}

	rates := filterSymbols(res.Rates, symbols)
	delete(rates, base)

	return &currency.Rates{
		Base:      base,
		Date:      res.Date,
		Rates:     rates,
		Provider:  f.identity(),
		FetchedAt: time.Now(),
	}, nil
}

func (f *fixer) mapError(code int, errorType string) error {
	message := fmt.Sprintf("error code %d (%s)", code, errorType)

	switch code {
	case 101, 102, 103:
		return &currency.Error{Kind: currency.KindAuthentication, Provider: f.identity(), Message: message, Err: currency.ErrInvalidAPIKey}
	case 201:
		return &currency.Error{Kind: currency.KindValidation, Provider: f.identity(), Message: message, Err: currency.ErrInvalidBaseCurrency}
	case 202:
		return &currency.Error{Kind: currency.KindValidation, Provider: f.identity(), Message: message, Err: currency.ErrUnsupportedCurrency}
	case 104, 105, 106:
		return &currency.Error{Kind: currency.KindPermission, Provider: f.identity(), Message: message, Err: currency.ErrRateLimitExceeded}
	}

	return &currency.Error{Kind: currency.KindUnexpected, Provider: f.identity(), Message: message}
}
