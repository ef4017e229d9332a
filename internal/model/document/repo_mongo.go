package document

import (
	"context"
	"errors"
	"fmt"

	"accounts/internal/entity"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// MongoRepository implements Repository on a MongoDB users collection.
type MongoRepository struct {
	client *mongo.Client
	users  *mongo.Collection
}

// NewMongoRepository wraps an already connected client.
func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}
}

// EnsureIndexes creates the unique email index and the reset token lookup index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.users == nil {
		return fmt.Errorf("repository not initialised")
	}
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("password_reset_token"),
		},
	})
	return err
}

// Close disconnects the client.
func (r *MongoRepository) Close(ctx context.Context) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

// activeFilter adds the soft delete condition to a filter.
func activeFilter(filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	filter["active"] = bson.M{"$ne": false}
	return filter
}

// parseID converts the public user id into an ObjectID.
func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, &entity.CastError{Field: "_id", Value: id, Err: err}
	}
	return oid, nil
}

// translateError maps driver errors onto the storage error types.
func translateError(err error, email string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return entity.ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return &entity.DuplicateKeyError{Field: "email", Value: email, Err: err}
	default:
		return fmt.Errorf("user store: %w", err)
	}
}
