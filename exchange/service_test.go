package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/subtrackr/currency"
)

type (
	MockProvider struct {
		mock.Mock
		id currency.Provider
	}

	MockSettings struct {
		mock.Mock
	}
)

func (m *MockProvider) GetLatestRates(_ context.Context, base string, symbols []string) (*currency.Rates, error) {
	args := m.Called(base, symbols)
	rates := args.Get(0)

	if rates == nil {
		return nil, args.Error(1)
	}

	return rates.(*currency.Rates), args.Error(1)
}

func (m *MockProvider) Convert(_ context.Context, amount float64, from, to string) (*currency.Conversion, error) {
	args := m.Called(amount, from, to)
	conversion := args.Get(0)

	if conversion == nil {
		return nil, args.Error(1)
	}

	return conversion.(*currency.Conversion), args.Error(1)
}

func (m *MockProvider) TestConnection(context.Context) bool {
	return m.Called().Bool(0)
}

func (m *MockProvider) Identity() currency.Provider {
	return m.id
}

func (m *MockSettings) Get(_ context.Context, name string) (string, error) {
	args := m.Called(name)

	return args.String(0), args.Error(1)
}

func (m *MockSettings) Set(_ context.Context, name, value string) error {
	return m.Called(name, value).Error(0)
}

func newTestService(settings currency.SettingsStore) *Service {
	return &Service{
		registry: NewRegistry(),
		settings: settings,
		logger:   zerolog.Nop(),
	}
}

func ratesFrom(provider currency.Provider) *currency.Rates {
	return &currency.Rates{
		Base:     "EUR",
		Date:     "2024-03-08",
		Rates:    map[string]float64{"USD": 1.0825},
		Provider: provider,
	}
}

func TestServiceInitialize(t *testing.T) {
	t.Parallel()
	assert := require.New(t)
	ctx := context.Background()

	t.Run("NoConfigsFails", func(t *testing.T) {
		service := newTestService(nil)
		service.newProvider = func(currency.Provider, currency.Config, zerolog.Logger) (currency.RateProvider, error) {
			t.Fatal("factory should not be called")
			return nil, nil
		}

		err := service.Initialize(ctx, nil)

		assert.ErrorIs(err, ErrNoProvidersConfigured)
	})

	t.Run("RestoresPersistedPreference", func(t *testing.T) {
		erAPI := &MockProvider{id: currency.ExchangeRateAPI}
		fixer := &MockProvider{id: currency.Fixer}

		settings := &MockSettings{}
		settings.On("Get", "currency.active_provider").Return("Fixer", nil)

		service := newTestService(settings)
		service.newProvider = factoryFor(erAPI, fixer)

		err := service.Initialize(ctx, map[currency.Provider]currency.Config{
			currency.ExchangeRateAPI: {APIKey: "a"},
			currency.Fixer:           {APIKey: "b"},
		})

		assert.NoError(err)

		active, err := service.ActiveProvider()
		assert.NoError(err)
		assert.Equal(currency.Fixer, active)
		// Preference restored, so no provider was probed.
		erAPI.AssertNotCalled(t, "TestConnection")
		fixer.AssertNotCalled(t, "TestConnection")
	})

	t.Run("AutoSelectsWhenNoPreference", func(t *testing.T) {
		erAPI := &MockProvider{id: currency.ExchangeRateAPI}
		erAPI.On("TestConnection").Return(false)
		fixer := &MockProvider{id: currency.Fixer}
		fixer.On("TestConnection").Return(true)

		settings := &MockSettings{}
		settings.On("Get", "currency.active_provider").Return("", currency.ErrSettingNotFound)

		service := newTestService(settings)
		service.newProvider = factoryFor(erAPI, fixer)

		err := service.Initialize(ctx, map[currency.Provider]currency.Config{
			currency.ExchangeRateAPI: {APIKey: "a"},
			currency.Fixer:           {APIKey: "b"},
		})

		assert.NoError(err)

		active, err := service.ActiveProvider()
		assert.NoError(err)
		assert.Equal(currency.Fixer, active)
	})

	t.Run("PersistedUnknownIdentityFallsBackToAutoSelect", func(t *testing.T) {
		erAPI := &MockProvider{id: currency.ExchangeRateAPI}
		erAPI.On("TestConnection").Return(true)

		settings := &MockSettings{}
		settings.On("Get", "currency.active_provider").Return("DefunctProvider", nil)

		service := newTestService(settings)
		service.newProvider = factoryFor(erAPI)

		err := service.Initialize(ctx, map[currency.Provider]currency.Config{
			currency.ExchangeRateAPI: {APIKey: "a"},
		})

		assert.NoError(err)

		active, err := service.ActiveProvider()
		assert.NoError(err)
		assert.Equal(currency.ExchangeRateAPI, active)
	})
}

func factoryFor(mocks ...*MockProvider) func(currency.Provider, currency.Config, zerolog.Logger) (currency.RateProvider, error) {
	byIdentity := make(map[currency.Provider]*MockProvider, len(mocks))

	for _, m := range mocks {
		byIdentity[m.id] = m
	}

	return func(identity currency.Provider, _ currency.Config, _ zerolog.Logger) (currency.RateProvider, error) {
		provider, ok := byIdentity[identity]

		if !ok {
			return nil, errors.New("unexpected identity in test factory")
		}

		return provider, nil
	}
}

func TestServiceFailover(t *testing.T) {
	t.Parallel()
	assert := require.New(t)
	ctx := context.Background()

	t.Run("SuccessfulFallbackIsStickyAndPersisted", func(t *testing.T) {
		failing := &MockProvider{id: currency.ExchangeRateAPI}
		failing.On("GetLatestRates", "EUR", []string(nil)).Return(nil, errors.New("connection refused"))

		working := &MockProvider{id: currency.Fixer}
		working.On("GetLatestRates", "EUR", []string(nil)).Return(ratesFrom(currency.Fixer), nil)

		settings := &MockSettings{}
		settings.On("Set", "currency.active_provider", "Fixer").Return(nil)

		service := newTestService(settings)
		service.registry.Register(failing)
		service.registry.Register(working)

		rates, err := service.GetLatestRates(ctx, "EUR", nil, currency.EmptyProvider)

		assert.NoError(err)
		assert.Equal(currency.Fixer, rates.Provider)

		active, err := service.ActiveProvider()
		assert.NoError(err)
		assert.Equal(currency.Fixer, active)
		settings.AssertCalled(t, "Set", "currency.active_provider", "Fixer")

		// The switch is sticky: the next call goes to Fixer directly.
		_, err = service.GetLatestRates(ctx, "EUR", nil, currency.EmptyProvider)
		assert.NoError(err)
		failing.AssertNumberOfCalls(t, "GetLatestRates", 1)
		working.AssertNumberOfCalls(t, "GetLatestRates", 2)
	})

	t.Run("ClientErrorOnActiveStillTriesAlternates", func(t *testing.T) {
		badKey := &MockProvider{id: currency.ExchangeRateAPI}
		badKey.On("GetLatestRates", "EUR", []string(nil)).Return(nil, &currency.Error{
			Kind: currency.KindAuthentication,
			Err:  currency.ErrInvalidAPIKey,
		})

		working := &MockProvider{id: currency.Fixer}
		working.On("GetLatestRates", "EUR", []string(nil)).Return(ratesFrom(currency.Fixer), nil)

		settings := &MockSettings{}
		settings.On("Set", mock.Anything, mock.Anything).Return(nil)

		service := newTestService(settings)
		service.registry.Register(badKey)
		service.registry.Register(working)

		rates, err := service.GetLatestRates(ctx, "EUR", nil, currency.EmptyProvider)

		assert.NoError(err)
		assert.Equal(currency.Fixer, rates.Provider)
	})

	t.Run("AllProvidersFailingWrapsLastCause", func(t *testing.T) {
		cause := errors.New("connection refused")

		first := &MockProvider{id: currency.ExchangeRateAPI}
		first.On("GetLatestRates", "EUR", []string(nil)).Return(nil, errors.New("timeout"))

		second := &MockProvider{id: currency.Fixer}
		second.On("GetLatestRates", "EUR", []string(nil)).Return(nil, cause)

		service := newTestService(nil)
		service.registry.Register(first)
		service.registry.Register(second)

		_, err := service.GetLatestRates(ctx, "EUR", nil, currency.EmptyProvider)

		assert.ErrorIs(err, currency.ErrServiceUnavailable)
		assert.ErrorIs(err, cause)

		// A failed fallback does not move the active pointer.
		active, activeErr := service.ActiveProvider()
		assert.NoError(activeErr)
		assert.Equal(currency.ExchangeRateAPI, active)
	})

	t.Run("SingleProviderFailurePropagatesDirectly", func(t *testing.T) {
		cause := errors.New("connection refused")

		only := &MockProvider{id: currency.ExchangeRateAPI}
		only.On("GetLatestRates", "EUR", []string(nil)).Return(nil, cause)

		service := newTestService(nil)
		service.registry.Register(only)

		_, err := service.GetLatestRates(ctx, "EUR", nil, currency.EmptyProvider)

		assert.Equal(cause, err)
		assert.NotErrorIs(err, currency.ErrServiceUnavailable)
	})

	t.Run("OverrideSkipsFailover", func(t *testing.T) {
		active := &MockProvider{id: currency.ExchangeRateAPI}

		overridden := &MockProvider{id: currency.FastForex}
		overridden.On("GetLatestRates", "EUR", []string(nil)).Return(nil, errors.New("down"))

		service := newTestService(nil)
		service.registry.Register(active)
		service.registry.Register(overridden)

		_, err := service.GetLatestRates(ctx, "EUR", nil, currency.FastForex)

		assert.EqualError(err, "down")
		active.AssertNotCalled(t, "GetLatestRates")

		current, activeErr := service.ActiveProvider()
		assert.NoError(activeErr)
		assert.Equal(currency.ExchangeRateAPI, current)
	})

	t.Run("UninitializedOverrideUsesActiveProvider", func(t *testing.T) {
		active := &MockProvider{id: currency.ExchangeRateAPI}
		active.On("GetLatestRates", "EUR", []string(nil)).Return(ratesFrom(currency.ExchangeRateAPI), nil)

		service := newTestService(nil)
		service.registry.Register(active)

		rates, err := service.GetLatestRates(ctx, "EUR", nil, currency.Fixer)

		assert.NoError(err)
		assert.Equal(currency.ExchangeRateAPI, rates.Provider)
	})
}

func TestServiceConvertFailover(t *testing.T) {
	t.Parallel()
	assert := require.New(t)
	ctx := context.Background()

	failing := &MockProvider{id: currency.ExchangeRateAPI}
	failing.On("Convert", 100.0, "EUR", "USD").Return(nil, errors.New("connection refused"))

	working := &MockProvider{id: currency.Fixer}
	working.On("Convert", 100.0, "EUR", "USD").Return(&currency.Conversion{
		Amount:          100,
		ConvertedAmount: 108.25,
		Rate:            1.0825,
		From:            "EUR",
		To:              "USD",
		Provider:        currency.Fixer,
	}, nil)

	settings := &MockSettings{}
	settings.On("Set", "currency.active_provider", "Fixer").Return(nil)

	service := newTestService(settings)
	service.registry.Register(failing)
	service.registry.Register(working)

	conversion, err := service.Convert(ctx, 100, "EUR", "USD", currency.EmptyProvider)

	assert.NoError(err)
	assert.Equal(currency.Fixer, conversion.Provider)
	assert.InDelta(108.25, conversion.ConvertedAmount, 0.000001)

	active, err := service.ActiveProvider()
	assert.NoError(err)
	assert.Equal(currency.Fixer, active)
}

func TestServiceSetActiveProvider(t *testing.T) {
	t.Parallel()
	assert := require.New(t)
	ctx := context.Background()

	settings := &MockSettings{}
	settings.On("Set", "currency.active_provider", "Fixer").Return(nil)

	service := newTestService(settings)
	service.registry.Register(&MockProvider{id: currency.ExchangeRateAPI})
	service.registry.Register(&MockProvider{id: currency.Fixer})

	assert.ErrorIs(service.SetActiveProvider(ctx, currency.FastForex), ErrProviderNotInitialized)

	assert.NoError(service.SetActiveProvider(ctx, currency.Fixer))
	settings.AssertCalled(t, "Set", "currency.active_provider", "Fixer")

	assert.Equal(
		[]currency.Provider{currency.ExchangeRateAPI, currency.Fixer},
		service.AvailableProviders(),
	)
}

func TestServiceLoadConfigs(t *testing.T) {
	t.Parallel()
	assert := require.New(t)
	ctx := context.Background()

	t.Run("DropsUnrecognizedEntriesSilently", func(t *testing.T) {
		settings := &MockSettings{}
		settings.On("Get", "currency.providers").Return(
			`[
				{"provider": "ExchangeRateAPI", "apiKey": "key-a"},
				{"provider": "DefunctProvider", "apiKey": "key-b"},
				{"provider": "Fixer", "apiKey": "key-c"}
			]`,
			nil,
		)

		service := newTestService(settings)

		configs, err := service.LoadConfigs(ctx)

		assert.NoError(err)
		assert.Len(configs, 2)
		assert.Equal("key-a", configs[currency.ExchangeRateAPI].APIKey)
		assert.Equal("key-c", configs[currency.Fixer].APIKey)
		assert.NotContains(configs, currency.Provider("DefunctProvider"))
	})

	t.Run("MissingSettingMeansNoConfigs", func(t *testing.T) {
		settings := &MockSettings{}
		settings.On("Get", "currency.providers").Return("", currency.ErrSettingNotFound)

		service := newTestService(settings)

		configs, err := service.LoadConfigs(ctx)

		assert.NoError(err)
		assert.Empty(configs)
	})

	t.Run("SaveRoundTripsThroughLoad", func(t *testing.T) {
		saved := ""

		settings := &MockSettings{}
		settings.On("Set", "currency.providers", mock.Anything).Run(func(args mock.Arguments) {
			saved = args.String(1)
		}).Return(nil)

		service := newTestService(settings)

		err := service.SaveConfigs(ctx, map[currency.Provider]currency.Config{
			currency.Fixer:           {APIKey: "key-c"},
			currency.ExchangeRateAPI: {APIKey: "key-a"},
		})
		assert.NoError(err)

		reload := &MockSettings{}
		reload.On("Get", "currency.providers").Return(saved, nil)

		loader := newTestService(reload)
		configs, err := loader.LoadConfigs(ctx)

		assert.NoError(err)
		assert.Len(configs, 2)
		assert.Equal("key-a", configs[currency.ExchangeRateAPI].APIKey)
	})
}
