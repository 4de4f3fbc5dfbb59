package currency

import (
	"fmt"
	"strings"
)

// Provider identifies which external source produced a result. It is used
// for display, selection and fallback ordering, never as a behavior switch.
type Provider string

const (
	ExchangeRateAPI Provider = "ExchangeRateAPI"
	Fixer           Provider = "Fixer"
	FastForex       Provider = "FastForex"
	EmptyProvider   Provider = ""
)

// AllProviders returns every known identity in canonical order. Registries
// and configuration loaders iterate this slice so startup is deterministic.
func AllProviders() []Provider {
	return []Provider{ExchangeRateAPI, Fixer, FastForex}
}

func ConvertToProvidersFromStringSlice(strings []string) ([]Provider, error) {
	providers := make([]Provider, 0, len(strings))

	for _, str := range strings {
		provider, err := ConvertToProviderFromString(str)
		if err != nil {
			return nil, err
		}

		providers = append(providers, provider)
	}

	return providers, nil
}

func ConvertToProviderFromString(str string) (Provider, error) {
	switch strings.ToLower(str) {
	case "exchangerateapi":
		return ExchangeRateAPI, nil
	case "fixer":
		return Fixer, nil
	case "fastforex":
		return FastForex, nil
	}

	return "", fmt.Errorf("value %s is not valid Provider", str)
}

func (p *Provider) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}

	provider, err := ConvertToProviderFromString(str)

	if err != nil {
		return err
	}

	*p = provider

	return nil
}

func (p Provider) MarshalYAML() (interface{}, error) {
	return string(p), nil
}
