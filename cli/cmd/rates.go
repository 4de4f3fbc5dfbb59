package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/subtrackr/currency"
)

func parseOverride(value string) (currency.Provider, error) {
	if value == "" {
		return currency.EmptyProvider, nil
	}

	return currency.ConvertToProviderFromString(value)
}

func rates(config *Config) *cobra.Command {
	var base string
	var symbols []string
	var provider string

	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Fetch the latest exchange rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := parseOverride(provider)

			if err != nil {
				return err
			}

			service, err := config.Build()

			if err != nil {
				return err
			}

			result, err := service.GetLatestRates(config.Ctx, base, symbols, override)

			if err != nil {
				return err
			}

			codes := make([]string, 0, len(result.Rates))

			for code := range result.Rates {
				codes = append(codes, code)
			}

			sort.Strings(codes)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Base: %s (%s, via %s)\n", result.Base, result.Date, result.Provider)

			for _, code := range codes {
				fmt.Fprintf(out, "%s\t%f\n", code, result.Rates[code])
			}

			return nil
		},
	}

	ratesCmd.Flags().StringVar(&base, "base", "EUR", "Base currency for the rates")
	ratesCmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Currencies to fetch, all when empty")
	ratesCmd.Flags().StringVar(&provider, "provider", "", "Provider override, skips failover")

	return ratesCmd
}
