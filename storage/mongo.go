package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/subtrackr/currency"
)

type MongoSettings struct {
	collection *mongo.Collection
}

func NewMongoSettings(collection *mongo.Collection) *MongoSettings {
	return &MongoSettings{
		collection: collection,
	}
}

func (m *MongoSettings) Migrate(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return err
}

func (m *MongoSettings) Get(ctx context.Context, name string) (string, error) {
	var setting struct {
		Value string `bson:"value"`
	}

	err := m.collection.FindOne(ctx, bson.M{"name": name}).Decode(&setting)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", currency.ErrSettingNotFound
		}

		return "", err
	}

	return setting.Value, nil
}

func (m *MongoSettings) Set(ctx context.Context, name, value string) error {
	_, err := m.collection.UpdateOne(
		ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{
			"value":     value,
			"updatedAt": time.Now(),
		}},
		options.Update().SetUpsert(true),
	)

	return err
}
