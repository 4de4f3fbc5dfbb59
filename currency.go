package currency

import "context"

type (
	// RateProvider is a single external exchange-rate source. Implementations
	// own their response cache and retry policy; callers only see the shared
	// data model and error taxonomy.
	RateProvider interface {
		GetLatestRates(ctx context.Context, base string, symbols []string) (*Rates, error)
		Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error)
		TestConnection(ctx context.Context) bool
		Identity() Provider
	}

	// SettingsStore is the durable key-value collaborator used to persist the
	// selected provider and the provider credentials between runs.
	SettingsStore interface {
		Get(ctx context.Context, name string) (string, error)
		Set(ctx context.Context, name, value string) error
	}
)
