package credstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type credentialDocument struct {
	TenantID   string    `bson:"_id"`
	Credential []byte    `bson:"credential"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per tenant keyed by _id.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, now: time.Now}
}

func (s *MongoStore) Retrieve(ctx context.Context, tenantID string) ([]byte, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	var doc credentialDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: tenantID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return doc.Credential, nil
}

func (s *MongoStore) Save(ctx context.Context, tenantID string, credential []byte) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "credential", Value: credential},
		{Key: "updated_at", Value: s.now().UTC()},
	}}}
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: tenantID}},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, tenantID string) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: tenantID}}); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Exists(ctx context.Context, tenantID string) bool {
	if ValidateTenantID(tenantID) != nil {
		return false
	}
	n, err := s.coll.CountDocuments(ctx,
		bson.D{{Key: "_id", Value: tenantID}},
		options.Count().SetLimit(1),
	)
	return err == nil && n > 0
}
