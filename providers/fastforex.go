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
	"golang.org/x/time/rate"

	"github.com/subtrackr/currency"
)

// fastforex.io allows bursts of ten requests per second on every plan.
const fastForexRequestsPerSecond = 10

type (
	fastForex struct {
		cfg        currency.Config
		httpClient *http.Client
	}

	fastForexResponse struct {
		Base    string             `json:"base"`
		Results map[string]float64 `json:"results"`
		Updated string             `json:"updated"`
		Error   string             `json:"error"`
	}
)

// NewFastForex builds a provider for fastforex.io.
func NewFastForex(cfg currency.Config, logger zerolog.Logger) (currency.RateProvider, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = FastForexURL
	}

	f := &fastForex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}

	limiter := rate.NewLimiter(rate.Every(time.Second), fastForexRequestsPerSecond)

	return newClient(cfg, f, limiter, logger), nil
}

func (f *fastForex) identity() currency.Provider {
	return currency.FastForex
}

func (f *fastForex) fetchLatest(ctx context.Context, base string, symbols []string) (*currency.Rates, error) {
	q := url.Values{}
	q.Add("from", base)
	q.Add("api_key", f.cfg.APIKey)

	endpoint := "fetch-all"

	if len(symbols) > 0 {
		endpoint = "fetch-multi"
		q.Add("to", strings.Join(symbols, ","))
	}

	status, body, err := submitRequest(ctx, f.httpClient, fmt.Sprintf("%s/%s?%s", f.cfg.BaseURL, endpoint, q.Encode()))

	if err != nil {
		return nil, err
	}

	var res fastForexResponse

	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &currency.Error{
			Kind:     currency.KindNetwork,
			Provider: f.identity(),
			Message:  fmt.Sprintf("status %d with unparseable body", status),
			Err:      err,
		}
	}

	if status != http.StatusOK || res.Error != "" {
		return nil, f.mapError(res.Error, status)
	}

	rates := res.Results
	delete(rates, base)

	return &currency.Rates{
		Base:      base,
		Date:      fastForexDate(res.Updated),
		Rates:     rates,
		Provider:  f.identity(),
		FetchedAt: time.Now(),
	}, nil
}

// Updated looks like "2024-03-08 14:06:21".
func fastForexDate(updated string) string {
	if fields := strings.Fields(updated); len(fields) > 0 {
		return fields[0]
	}

	return time.Now().UTC().Format("2006-01-02")
}

func (f *fastForex) mapError(apiError string, status int) error {
	message := fmt.Sprintf("%q (status %d)", apiError, status)
	lowered := strings.ToLower(apiError)

	switch {
	case status == http.StatusUnauthorized, strings.Contains(lowered, "api key"):
		return &currency.Error{Kind: currency.KindAuthentication, Provider: f.identity(), Message: message, Err: currency.ErrInvalidAPIKey}
	case strings.Contains(lowered, "unsupported"), strings.Contains(lowered, "invalid currency"):
		return &currency.Error{Kind: currency.KindValidation, Provider: f.identity(), Message: message, Err: currency.ErrUnsupportedCurrency}
	case status == http.StatusTooManyRequests, strings.Contains(lowered, "rate limit"):
		return &currency.Error{Kind: currency.KindPermission, Provider: f.identity(), Message: message, Err: currency.ErrRateLimitExceeded}
	}

	return &currency.Error{Kind: currency.KindUnexpected, Provider: f.identity(), Message: message}
}
