package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subtrackr/currency"
)

func providers(config *Config) *cobra.Command {
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and select rate providers",
	}

	providersCmd.AddCommand(providersList(config), providersSelect(config), providersAuto(config))

	return providersCmd
}

func providersList(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured providers and their health",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := config.Build()

			if err != nil {
				return err
			}

			active, _ := service.ActiveProvider()
			health := service.ProbeAll(config.Ctx)
			out := cmd.OutOrStdout()

			for _, identity := range service.AvailableProviders() {
				marker := " "

				if identity == active {
					marker = "*"
				}

				state := "unreachable"

				if health[identity] {
					state = "ok"
				}

				fmt.Fprintf(out, "%s %s\t%s\n", marker, identity, state)
			}

			return nil
		},
	}
}

func providersSelect(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "select <provider>",
		Short: "Set the active provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := currency.ConvertToProviderFromString(args[0])

			if err != nil {
				return err
			}

			service, err := config.Build()

			if err != nil {
				return err
			}

			if err := service.SetActiveProvider(config.Ctx, identity); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Active provider set to %s\n", identity)

			return nil
		},
	}
}

func providersAuto(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Probe providers and activate the first working one",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := config.Build()

			if err != nil {
				return err
			}

			active, err := service.AutoSelect(config.Ctx)

			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Active provider: %s\n", active)

			return nil
		},
	}
}
