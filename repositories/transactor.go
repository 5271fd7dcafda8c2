package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/nestfire_backend/services"
)

// MongoTransactor runs a unit of work inside a multi-document transaction. It needs
// a replica set or sharded cluster.
type MongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

func (t *MongoTransactor) Run(ctx context.Context, steps ...services.Step) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	// the callback may be retried on transient errors, so steps must not keep state
	// beyond what they reset on entry
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, s := range steps {
			if err := s.Do(sc); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
