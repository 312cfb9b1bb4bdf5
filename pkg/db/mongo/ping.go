package mongo

import (
	"context"

	"expobook/pkg/db"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type clientPinger struct {
	client *mongo.Client
}

func NewPinger(client *mongo.Client) db.Pinger {
	return &clientPinger{client: client}
}

func (p *clientPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}
