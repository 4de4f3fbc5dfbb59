package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/subtrackr/currency"
)

type (
	Provider   string
	BaseConfig struct {
		Ctx     context.Context
		Migrate bool
	}
	MySQLConfig struct {
		BaseConfig
		ConnectionString string
		TableName        string
	}
	MongoDBConfig struct {
		BaseConfig
		ConnectionString string
		Database         string
		Collection       string
	}
)

const (
	MySQL   Provider = "mysql"
	MongoDB Provider = "mongodb"
)

var ErrStorageNotFound = errors.New("storage is not found")

func ConvertToProviderFromString(str string) (Provider, error) {
	switch strings.ToLower(str) {
	case "mysql":
		return MySQL, nil
	case "mongodb":
		return MongoDB, nil
	}

	return "", fmt.Errorf("value %s is not valid Provider", str)
}

// NewSettingsStore connects the configured backend and returns the settings
// store the exchange facade persists its provider preference through.
func NewSettingsStore(provider Provider, config interface{}) (currency.SettingsStore, error) {
	switch provider {
	case MySQL:
		c := config.(MySQLConfig)

		db, err := sql.Open("mysql", c.ConnectionString)

		if err != nil {
			return nil, err
		}

		store := NewMySQLSettings(db, c.TableName)

		if c.Migrate {
			if err := store.Migrate(c.Ctx); err != nil {
				return nil, err
			}
		}

		return store, nil
	case MongoDB:
		c := config.(MongoDBConfig)

		client, err := mongo.Connect(c.Ctx, options.Client().ApplyURI(c.ConnectionString))

		if err != nil {
			return nil, err
		}

		store := NewMongoSettings(client.Database(c.Database).Collection(c.Collection))

		if c.Migrate {
			if err := store.Migrate(c.Ctx); err != nil {
				return nil, err
			}
		}

		return store, nil
	}

	return nil, ErrStorageNotFound
}
