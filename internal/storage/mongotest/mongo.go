// Package mongotest connects integration tests to a real MongoDB.
//
// Tests are skipped unless EXPOBOOK_TEST_MONGO_URI points at a replica set;
// transactions are unavailable on a standalone server.
package mongotest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	mongoMigration "expobook/internal/migrations/mongo"
	"expobook/pkg/client"
	"expobook/pkg/config"
	"expobook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvMongoURI       = "EXPOBOOK_TEST_MONGO_URI"
	ConnectionTimeout = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
	Config   *config.Config
}

// NewMongoHelper connects, migrates a fresh database and drops it when the
// test finishes.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := os.Getenv(EnvMongoURI)
	if mongoURI == "" {
		t.Skipf("%s not set, skipping Mongo integration test", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := fmt.Sprintf("expobook_test_%d", time.Now().UnixNano())
	log := logger.Discard()
	if err := mongoMigration.RunMigration(ctx, mongoClient, dbName, log); err != nil {
		t.Fatalf("failed to migrate %s: %v", dbName, err)
	}

	h := &MongoHelper{
		Client:   mongoClient,
		Database: mongoClient.Database(dbName),
		DBName:   dbName,
		Config: &config.Config{
			MongoURI:          mongoURI,
			MongoDatabaseName: dbName,
			StorageDriver:     config.StorageMongo,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      5 * time.Second,
			Location:          time.UTC,
			Log:               log,
			Client:            &client.Client{Mongo: mongoClient},
		},
	}
	t.Cleanup(func() { h.close(t) })
	return h
}

func (m *MongoHelper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop database %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

// CountDocuments returns the number of documents in a collection
func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}
