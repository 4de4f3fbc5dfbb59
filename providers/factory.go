package providers

import (
	"github.com/rs/zerolog"

	"github.com/subtrackr/currency"
)

// New constructs the provider for the given identity. Unknown identities
// fall back to the default provider with a warning so a stale persisted
// preference cannot take the whole engine down.
func New(identity currency.Provider, cfg currency.Config, logger zerolog.Logger) (currency.RateProvider, error) {
	switch identity {
	case currency.ExchangeRateAPI:
		return NewExchangeRateAPI(cfg, logger)
	case currency.Fixer:
		return NewFixer(cfg, logger)
	case currency.FastForex:
		return NewFastForex(cfg, logger)
	}

	logger.Warn().Str("provider", string(identity)).Msg("unknown provider identity, falling back to default")

	return NewExchangeRateAPI(cfg, logger)
}
