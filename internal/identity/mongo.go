package identity

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/models"
)

// MongoDirectory reads the users collection maintained by the identity
// service.
type MongoDirectory struct {
	users *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{users: db.Collection("users")}
}

func (d *MongoDirectory) EnsureIndexes(ctx context.Context) error {
	_, err := d.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "unit", Value: 1}},
		Options: options.Index().SetName("unit_idx"),
	})
	return err
}

func (d *MongoDirectory) Lookup(ctx context.Context, id string) (models.Identity, error) {
	var ident models.Identity
	err := d.users.FindOne(ctx, bson.M{"_id": id}).Decode(&ident)
	if err == mongo.ErrNoDocuments {
		return models.Identity{}, apperrors.ErrParticipantNotFound
	}
	if err != nil {
		return models.Identity{}, err
	}
	return ident, nil
}

func (d *MongoDirectory) LookupByUnit(ctx context.Context, unit string) (models.Identity, error) {
	var ident models.Identity
	err := d.users.FindOne(ctx, bson.M{"unit": unit}).Decode(&ident)
	if err == mongo.ErrNoDocuments {
		return models.Identity{}, apperrors.ErrParticipantNotFound
	}
	if err != nil {
		return models.Identity{}, err
	}
	return ident, nil
}

// Register inserts a provisional record. Idempotent: an existing record
// with the same id wins.
func (d *MongoDirectory) Register(ctx context.Context, ident models.Identity) error {
	update := bson.M{"$setOnInsert": bson.M{
		"name":        ident.Name,
		"role":        ident.Role,
		"unit":        ident.Unit,
		"provisional": ident.Provisional,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := d.users.UpdateByID(ctx, ident.ID, update, opts)
	return err
}
