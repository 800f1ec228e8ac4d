package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	ErrEmptyConnectionURL = errors.New("mongo: MONGODB_URL is empty")
	ErrConnect            = errors.New("mongo: could not reach primary")
	ErrUnhealthy          = errors.New("mongo: readiness probe failed")
)

const probeTimeout = 2 * time.Second

// Healthcheck returns a readiness probe that pings the primary. Credentials
// are written there, so a reachable secondary alone is not ready.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, probeTimeout)
			defer cancel()
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return errors.Join(ErrUnhealthy, err)
		}
		return nil
	}
}
