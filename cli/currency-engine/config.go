package main

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/subtrackr/currency"
	"github.com/subtrackr/currency/cli/cmd"
	"github.com/subtrackr/currency/exchange"
	"github.com/subtrackr/currency/storage"
)

func getMysqlDSN(config map[string]string) string {
	mysqlDriverConfig := mysql.NewConfig()
	mysqlDriverConfig.User = config["user"]
	mysqlDriverConfig.Passwd = config["password"]
	mysqlDriverConfig.Addr = config["addr"]
	mysqlDriverConfig.Net = "tcp"
	mysqlDriverConfig.DBName = config["db"]

	return mysqlDriverConfig.FormatDSN()
}

func getSettingsStore(ctx context.Context) (currency.SettingsStore, error) {
	provider, err := storage.ConvertToProviderFromString(viper.GetString("storage"))

	if err != nil {
		return nil, err
	}

	baseConfig := storage.BaseConfig{
		Ctx:     ctx,
		Migrate: viper.GetBool("migrate"),
	}

	switch provider {
	case storage.MySQL:
		mysqlConfig := viper.GetStringMapString("databases.mysql")

		return storage.NewSettingsStore(provider, storage.MySQLConfig{
			BaseConfig:       baseConfig,
			ConnectionString: getMysqlDSN(mysqlConfig),
			TableName:        mysqlConfig["table"],
		})
	case storage.MongoDB:
		mongodbConfig := viper.GetStringMapString("databases.mongodb")

		return storage.NewSettingsStore(provider, storage.MongoDBConfig{
			BaseConfig:       baseConfig,
			ConnectionString: mongodbConfig["uri"],
			Database:         mongodbConfig["db"],
			Collection:       mongodbConfig["collection"],
		})
	}

	return nil, storage.ErrStorageNotFound
}

// getProviderConfigs reads the per-provider credentials from the config
// file. Keys under providers.* that do not name a known identity are
// skipped.
func getProviderConfigs() map[currency.Provider]currency.Config {
	configs := make(map[currency.Provider]currency.Config)

	for name := range viper.GetStringMap("providers") {
		identity, err := currency.ConvertToProviderFromString(name)

		if err != nil {
			continue
		}

		providerConfig := viper.GetStringMapString("providers." + name)

		configs[identity] = currency.Config{
			APIKey:  providerConfig["apikey"],
			BaseURL: providerConfig["url"],
		}
	}

	return configs
}

func buildService(ctx context.Context, logger *zerolog.Logger) func() (*exchange.Service, error) {
	return func() (*exchange.Service, error) {
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error while reading in the config file: %w", err)
		}

		settings, err := getSettingsStore(ctx)

		if err != nil {
			return nil, err
		}

		serviceLogger := *logger

		if cmd.Debug() {
			serviceLogger = serviceLogger.Level(zerolog.DebugLevel)
		}

		service := exchange.NewService(settings, serviceLogger)
		configs := getProviderConfigs()

		// Fall back to the credentials persisted by the dashboard when the
		// config file carries none.
		if len(configs) == 0 {
			configs, err = service.LoadConfigs(ctx)

			if err != nil {
				return nil, err
			}
		}

		if err := service.Initialize(ctx, configs); err != nil {
			return nil, err
		}

		return service, nil
	}
}
