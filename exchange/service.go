package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/subtrackr/currency"
	"github.com/subtrackr/currency/providers"
)

const (
	activeProviderKey  = "currency.active_provider"
	providerConfigsKey = "currency.providers"
)

var ErrNoProvidersConfigured = errors.New("no providers configured")

type (
	// Service is the only surface the rest of the application touches. It
	// owns the registry, restores the persisted provider preference, and on
	// failure of the active provider retries the request against every
	// other configured provider before giving up.
	Service struct {
		registry    *Registry
		settings    currency.SettingsStore
		logger      zerolog.Logger
		newProvider func(currency.Provider, currency.Config, zerolog.Logger) (currency.RateProvider, error)
	}

	// providerCredential is one entry of the persisted configuration array.
	providerCredential struct {
		Provider string `json:"provider"`
		APIKey   string `json:"apiKey"`
	}
)

func NewService(settings currency.SettingsStore, logger zerolog.Logger) *Service {
	return &Service{
		registry:    NewRegistry(),
		settings:    settings,
		logger:      logger,
		newProvider: providers.New,
	}
}

// Initialize constructs every configured provider, then restores the
// persisted active-provider preference when it is among the configured
// set; otherwise it auto-selects the first provider that responds.
func (s *Service) Initialize(ctx context.Context, configs map[currency.Provider]currency.Config) error {
	if len(configs) == 0 {
		return ErrNoProvidersConfigured
	}

	for _, identity := range currency.AllProviders() {
		cfg, ok := configs[identity]

		if !ok {
			continue
		}

		provider, err := s.newProvider(identity, cfg, s.logger)

		if err != nil {
			return fmt.Errorf("initializing provider %s: %w", identity, err)
		}

		s.registry.Register(provider)
	}

	if s.registry.Len() == 0 {
		return ErrNoProvidersConfigured
	}

	if s.settings != nil {
		if saved, err := s.settings.Get(ctx, activeProviderKey); err == nil {
			if identity, convErr := currency.ConvertToProviderFromString(saved); convErr == nil && s.registry.Has(identity) {
				return s.registry.SetActive(identity)
			}
		}
	}

	if !s.registry.AutoSelect(ctx) {
		s.logger.Warn().Msg("no provider passed the connection test, keeping first configured provider active")
	}

	return nil
}

// GetLatestRates resolves rates through the active provider, falling back
// to the remaining providers on failure. An explicit override skips the
// fallback chain entirely.
func (s *Service) GetLatestRates(ctx context.Context, base string, symbols []string, override currency.Provider) (*currency.Rates, error) {
	if provider, ok := s.overridden(override); ok {
		return provider.GetLatestRates(ctx, base, symbols)
	}

	var rates *currency.Rates

	err := s.withFailover(ctx, "fetch rates", func(provider currency.RateProvider) error {
		fetched, err := provider.GetLatestRates(ctx, base, symbols)

		if err != nil {
			return err
		}

		rates = fetched

		return nil
	})
	if err != nil {
		return nil, err
	}

	return rates, nil
}

// Convert converts amount between two currencies with the same override
// and failover semantics as GetLatestRates.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string, override currency.Provider) (*currency.Conversion, error) {
	if provider, ok := s.overridden(override); ok {
		return provider.Convert(ctx, amount, from, to)
	}

	var conversion *currency.Conversion

	err := s.withFailover(ctx, "convert", func(provider currency.RateProvider) error {
		converted, err := provider.Convert(ctx, amount, from, to)

		if err != nil {
			return err
		}

		conversion = converted

		return nil
	})
	if err != nil {
		return nil, err
	}

	return conversion, nil
}

func (s *Service) SetActiveProvider(ctx context.Context, identity currency.Provider) error {
	if err := s.registry.SetActive(identity); err != nil {
		return err
	}

	s.persistActive(ctx, identity)

	return nil
}

func (s *Service) ActiveProvider() (currency.Provider, error) {
	provider, err := s.registry.Active()

	if err != nil {
		return currency.EmptyProvider, err
	}

	return provider.Identity(), nil
}

func (s *Service) AvailableProviders() []currency.Provider {
	return s.registry.Providers()
}

func (s *Service) ProbeAll(ctx context.Context) map[currency.Provider]bool {
	return s.registry.ProbeAll(ctx)
}

// AutoSelect re-probes all providers, activates the first working one and
// persists the choice.
func (s *Service) AutoSelect(ctx context.Context) (currency.Provider, error) {
	if !s.registry.AutoSelect(ctx) {
		return currency.EmptyProvider, fmt.Errorf("%w: no provider passed the connection test", currency.ErrServiceUnavailable)
	}

	identity := s.registry.ActiveIdentity()
	s.persistActive(ctx, identity)

	return identity, nil
}

// LoadConfigs reconstructs the provider configuration from the settings
// store. Entries naming an unrecognized provider are dropped silently.
func (s *Service) LoadConfigs(ctx context.Context) (map[currency.Provider]currency.Config, error) {
	if s.settings == nil {
		return map[currency.Provider]currency.Config{}, nil
	}

	raw, err := s.settings.Get(ctx, providerConfigsKey)

	if errors.Is(err, currency.ErrSettingNotFound) {
		return map[currency.Provider]currency.Config{}, nil
	}

	if err != nil {
		return nil, err
	}

	var credentials []providerCredential

	if err := json.Unmarshal([]byte(raw), &credentials); err != nil {
		return nil, fmt.Errorf("decoding persisted provider configuration: %w", err)
	}

	configs := make(map[currency.Provider]currency.Config, len(credentials))

	for _, credential := range credentials {
		identity, err := currency.ConvertToProviderFromString(credential.Provider)

		if err != nil {
			s.logger.Debug().Str("provider", credential.Provider).Msg("dropping unrecognized provider entry")
			continue
		}

		configs[identity] = currency.Config{APIKey: credential.APIKey}
	}

	return configs, nil
}

// SaveConfigs persists the provider credentials as the JSON array read
// back by LoadConfigs on the next startup.
func (s *Service) SaveConfigs(ctx context.Context, configs map[currency.Provider]currency.Config) error {
	credentials := make([]providerCredential, 0, len(configs))

	for _, identity := range currency.AllProviders() {
		cfg, ok := configs[identity]

		if !ok {
			continue
		}

		credentials = append(credentials, providerCredential{
			Provider: string(identity),
			APIKey:   cfg.APIKey,
		})
	}

	encoded, err := json.Marshal(credentials)

	if err != nil {
		return err
	}

	if s.settings == nil {
		return nil
	}

	return s.settings.Set(ctx, providerConfigsKey, string(encoded))
}

func (s *Service) overridden(override currency.Provider) (currency.RateProvider, bool) {
	if override == currency.EmptyProvider {
		return nil, false
	}

	provider, ok := s.registry.Provider(override)

	if !ok {
		s.logger.Warn().Str("provider", string(override)).Msg("override provider is not initialized, using active provider")
	}

	return provider, ok
}

// withFailover runs call against the active provider and, on any failure,
// against the remaining providers in registry order. The first provider to
// succeed becomes the new active provider; the switch is sticky and
// persisted. Individual fallback failures are logged, not surfaced.
func (s *Service) withFailover(ctx context.Context, operation string, call func(currency.RateProvider) error) error {
	active, err := s.registry.Active()

	if err != nil {
		return err
	}

	lastErr := call(active)

	if lastErr == nil {
		return nil
	}

	if s.registry.Len() < 2 {
		return lastErr
	}

	s.logger.Warn().
		Err(lastErr).
		Str("provider", string(active.Identity())).
		Str("operation", operation).
		Msg("active provider failed, trying alternates")

	for _, identity := range s.registry.Providers() {
		if identity == active.Identity() {
			continue
		}

		provider, ok := s.registry.Provider(identity)

		if !ok {
			continue
		}

		if err := call(provider); err != nil {
			s.logger.Warn().
				Err(err).
				Str("provider", string(identity)).
				Str("operation", operation).
				Msg("fallback provider failed")

			lastErr = err

			continue
		}

		s.activate(ctx, identity)

		return nil
	}

	return fmt.Errorf("unable to %s with any provider: %w: %w", operation, currency.ErrServiceUnavailable, lastErr)
}

func (s *Service) activate(ctx context.Context, identity currency.Provider) {
	if err := s.registry.SetActive(identity); err != nil {
		return
	}

	s.persistActive(ctx, identity)
	s.logger.Info().Str("provider", string(identity)).Msg("active provider switched")
}

func (s *Service) persistActive(ctx context.Context, identity currency.Provider) {
	if s.settings == nil {
		return
	}

	if err := s.settings.Set(ctx, activeProviderKey, string(identity)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist active provider preference")
	}
}
