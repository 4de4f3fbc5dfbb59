package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subtrackr/currency/exchange"
)

var (
	rootCmd = &cobra.Command{
		Use:     "currency-engine",
		Short:   "Exchange-rate resolution engine",
		Version: "v1.0.0",
	}
	debug      bool
	configFile string
)

type (
	// Config wires the commands to the host application. Build is invoked
	// lazily so flags and the config file are parsed before any provider
	// or storage connection is opened.
	Config struct {
		Ctx   context.Context
		Build func() (*exchange.Service, error)
	}
)

func Debug() bool {
	return debug
}

func Execute(config *Config) error {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug flag")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config.yml", "Path to config file")
	cobra.OnInitialize()

	absolutePath, _ := filepath.Abs(configFile)

	viper.SetConfigFile(absolutePath)
	viper.SetEnvPrefix("CURRENCY_ENGINE")
	viper.AutomaticEnv()

	rootCmd.AddCommand(rates(config), convert(config), providers(config))

	return rootCmd.Execute()
}
