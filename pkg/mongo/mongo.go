package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	// ErrNotReady is returned when the server does not answer the initial
	// ping.
	ErrNotReady = errors.New("mongodb is not ready")
)

// Config is the env-driven mongo configuration for the audit log storage.
type Config struct {
	ConnectionURL  string        `env:"NOTIFY_MONGO_URL,required"`
	Database       string        `env:"NOTIFY_MONGO_DB" envDefault:"notifykit"`
	ConnectTimeout time.Duration `env:"NOTIFY_MONGO_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect establishes a mongo client and verifies the connection with a
// ping before handing it out.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.ConnectionURL))
	if err != nil {
		return nil, nil, errors.Join(ErrNotReady, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Join(ErrNotReady, err)
	}

	return client, client.Database(cfg.Database), nil
}
