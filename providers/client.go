package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/subtrackr/currency"
)

// connectionTestBase is a currency every provider is expected to quote.
const connectionTestBase = "USD"

// fetcher is the part a concrete provider supplies: URL construction,
// response parsing and mapping of its error payloads into the taxonomy.
type fetcher interface {
	identity() currency.Provider
	fetchLatest(ctx context.Context, base string, symbols []string) (*currency.Rates, error)
}

type cacheEntry struct {
	data     *currency.Rates
	cachedAt time.Time
	ttl      time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.cachedAt) >= e.ttl
}

// client layers response caching, per-attempt timeouts and retry with
// capped exponential backoff over a provider-supplied fetch. The same
// behavior backs every provider; only the inner fetcher differs.
type client struct {
	cfg     currency.Config
	fetcher fetcher
	retrier *retrier.Retrier
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func newClient(cfg currency.Config, f fetcher, limiter *rate.Limiter, logger zerolog.Logger) *client {
	r := retrier.New(
		retrier.LimitedExponentialBackoff(cfg.MaxRetries, cfg.InitialRetryDelay, cfg.MaxRetryDelay),
		transientClassifier{},
	)
	r.SetJitter(0.5)

	return &client{
		cfg:     cfg,
		fetcher: f,
		retrier: r,
		limiter: limiter,
		logger:  logger.With().Str("provider", string(f.identity())).Logger(),
		cache:   make(map[string]cacheEntry),
	}
}

// transientClassifier stops the retrier as soon as a failure is structural;
// retrying a bad key or an unknown currency only burns the attempt budget.
type transientClassifier struct{}

func (transientClassifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case currency.IsClientError(err), errors.Is(err, context.Canceled):
		return retrier.Fail
	}

	return retrier.Retry
}

func (c *client) Identity() currency.Provider {
	return c.fetcher.identity()
}

func cacheKey(identity currency.Provider, base string, symbols []string) string {
	if len(symbols) == 0 {
		return fmt.Sprintf("%s|%s|all", identity, base)
	}

	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	return fmt.Sprintf("%s|%s|%s", identity, base, strings.Join(sorted, ","))
}

func (c *client) GetLatestRates(ctx context.Context, base string, symbols []string) (*currency.Rates, error) {
	key := cacheKey(c.Identity(), base, symbols)

	if cached, ok := c.cached(key); ok {
		c.logger.Debug().Str("key", key).Msg("serving rates from cache")
		return cached, nil
	}

	var rates *currency.Rates

	err := c.retrier.RunCtx(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		fetched, err := c.fetcher.fetchLatest(attemptCtx, base, symbols)
		if err != nil {
			// Only the per-attempt timer counts as a retryable timeout; a
			// cancelled caller context must stop the retrier instead.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = &currency.Error{
					Kind:     currency.KindNetwork,
					Provider: c.Identity(),
					Message:  "request timed out",
					Err:      currency.ErrNetworkTimeout,
				}
			}

			c.logger.Warn().Err(err).Str("base", base).Msg("rate fetch attempt failed")

			return err
		}

		rates = fetched

		return nil
	})
	if err != nil {
		return nil, err
	}

	c.store(key, rates)

	return rates, nil
}

func (c *client) Convert(ctx context.Context, amount float64, from, to string) (*currency.Conversion, error) {
	if from == to {
		return &currency.Conversion{
			Amount:          amount,
			ConvertedAmount: amount,
			Rate:            1,
			From:            from,
			To:              to,
			Date:            time.Now().UTC().Format("2006-01-02"),
			Provider:        c.Identity(),
		}, nil
	}

	rates, err := c.GetLatestRates(ctx, from, []string{to})
	if err != nil {
		return nil, err
	}

	pairRate, ok := rates.Rates[to]
	if !ok {
		return nil, &currency.Error{
			Kind:     currency.KindValidation,
			Provider: c.Identity(),
			Message:  fmt.Sprintf("no rate for %s", to),
			Err:      currency.ErrUnsupportedCurrency,
		}
	}

	return &currency.Conversion{
		Amount:          amount,
		ConvertedAmount: multiply(amount, pairRate),
		Rate:            pairRate,
		From:            from,
		To:              to,
		Date:            rates.Date,
		Provider:        c.Identity(),
	}, nil
}

func (c *client) TestConnection(ctx context.Context) bool {
	_, err := c.GetLatestRates(ctx, connectionTestBase, nil)

	return err == nil
}

func (c *client) cached(key string) (*currency.Rates, bool) {
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.mu.Lock()
		delete(c.cache, key)
		c.mu.Unlock()

		return nil, false
	}

	return entry.data, true
}

func (c *client) store(key string, rates *currency.Rates) {
	c.mu.Lock()
	c.cache[key] = cacheEntry{
		data:     rates,
		cachedAt: time.Now(),
		ttl:      c.cfg.CacheTTL,
	}
	c.mu.Unlock()
}

func multiply(amount, pairRate float64) float64 {
	product, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(pairRate)).Float64()

	return math.Round(product*1_000_000) / 1_000_000
}
