package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func convert(config *Config) *cobra.Command {
	var provider string

	convertCmd := &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between two currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)

			if err != nil {
				return fmt.Errorf("amount %s is not a number: %w", args[0], err)
			}

			override, err := parseOverride(provider)

			if err != nil {
				return err
			}

			service, err := config.Build()

			if err != nil {
				return err
			}

			result, err := service.Convert(config.Ctx, amount, args[1], args[2], override)

			if err != nil {
				return err
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%f %s = %f %s (rate %f, %s, via %s)\n",
				result.Amount, result.From,
				result.ConvertedAmount, result.To,
				result.Rate, result.Date, result.Provider,
			)

			return nil
		},
	}

	convertCmd.Flags().StringVar(&provider, "provider", "", "Provider override, skips failover")

	return convertCmd
}
