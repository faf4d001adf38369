package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gogotex/people/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Dialer is the connect step used by ConnectWithRetry; ConnectMongo in production.
type Dialer func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)

// ConnectWithRetry calls dial up to maxAttempts times with doubling backoff.
// It gives up early when ctx is done.
func ConnectWithRetry(ctx context.Context, dial Dialer, uri string, timeout time.Duration, maxAttempts int, backoff time.Duration) (*mongo.Client, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := dial(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, lastErr)
}

// Handle owns one client and the database it was opened for.
// Acquire it with Open and release it with Close once every user is done.
type Handle struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Open connects (with retry) and selects the database.
func Open(ctx context.Context, uri, database string, timeout time.Duration, maxAttempts int) (*Handle, error) {
	client, err := ConnectWithRetry(ctx, ConnectMongo, uri, timeout, maxAttempts, time.Second)
	if err != nil {
		return nil, err
	}
	return &Handle{Client: client, Database: client.Database(database)}, nil
}

// Collection returns a collection of the handle's database.
func (h *Handle) Collection(name string) *mongo.Collection {
	return h.Database.Collection(name)
}

// Close disconnects the client. It is safe to call on a nil handle.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.Client == nil {
		return nil
	}
	return h.Client.Disconnect(ctx)
}
