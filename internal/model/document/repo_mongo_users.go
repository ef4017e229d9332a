package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"accounts/internal/entity"
	"accounts/internal/entity/db"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// hiddenFields are excluded from reads unless explicitly requested.
var hiddenFields = bson.M{"password": 0}

// CreateUser persists a new user document.
func (r *MongoRepository) CreateUser(ctx context.Context, user *entity.User) error {
	if r == nil || r.users == nil {
		return fmt.Errorf("repository not initialised")
	}
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	user.Email = entity.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = entity.UserRoleUser
	}
	user.Active = true
	if err := user.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	doc := db.UserDocumentFromEntity(user)
	doc.ID = bson.NewObjectID()
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return translateError(err, user.Email)
	}
	user.ID = doc.ID.Hex()
	return nil
}

// UpdateUser applies a partial update to an active user.
func (r *MongoRepository) UpdateUser(ctx context.Context, id string, updates entity.UserUpdates, validate bool) error {
	if r == nil || r.users == nil {
		return fmt.Errorf("repository not initialised")
	}
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	if updates.Email != nil {
		normalized := entity.NormalizeEmail(*updates.Email)
		updates.Email = &normalized
	}
	if validate {
		if err := updates.Validate(); err != nil {
			return err
		}
	}
	if updates.IsEmpty() {
		return nil
	}

	email := ""
	if updates.Email != nil {
		email = *updates.Email
	}
	result, err := r.users.UpdateOne(ctx, activeFilter(bson.M{"_id": oid}), updateDocument(updates, time.Now().UTC()))
	if err != nil {
		return translateError(err, email)
	}
	if result.MatchedCount == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

// GetUserByID loads an active user by ID.
func (r *MongoRepository) GetUserByID(ctx context.Context, id string, opts entity.FindOptions) (*entity.User, error) {
	if r == nil || r.users == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, opts)
}

// GetUserByEmail loads an active user by email.
func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string, opts entity.FindOptions) (*entity.User, error) {
	if r == nil || r.users == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	normalized := entity.NormalizeEmail(email)
	if normalized == "" {
		return nil, entity.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"email": normalized}, opts)
}

// GetUserByResetToken loads the active user owning an unexpired reset token hash.
func (r *MongoRepository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	if r == nil || r.users == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(tokenHash) == "" {
		return nil, entity.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": bson.M{"$gt": now.UTC()},
	}, entity.FindOptions{})
}

// ListUsers returns all active users.
func (r *MongoRepository) ListUsers(ctx context.Context) ([]entity.User, error) {
	if r == nil || r.users == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	findOpts := options.Find().
		SetProjection(hiddenFields).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.users.Find(ctx, activeFilter(nil), findOpts)
	if err != nil {
		return nil, translateError(err, "")
	}
	var docs []db.UserDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translateError(err, "")
	}
	users := make([]entity.User, 0, len(docs))
	for idx := range docs {
		users = append(users, *docs[idx].ToEntity())
	}
	return users, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M, opts entity.FindOptions) (*entity.User, error) {
	findOpts := options.FindOne()
	if !opts.WithPassword {
		findOpts.SetProjection(hiddenFields)
	}
	var doc db.UserDocument
	if err := r.users.FindOne(ctx, activeFilter(filter), findOpts).Decode(&doc); err != nil {
		return nil, translateError(err, "")
	}
	return doc.ToEntity(), nil
}

// updateDocument builds the $set / $unset update for a partial change.
func updateDocument(u entity.UserUpdates, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.Password != nil {
		set["password"] = *u.Password
	}
	if u.PasswordChangedAt != nil {
		set["passwordChangedAt"] = u.PasswordChangedAt.UTC()
	}
	if u.ClearPasswordReset {
		unset["passwordResetToken"] = ""
		unset["passwordResetExpires"] = ""
	} else {
		if u.PasswordResetToken != nil {
			set["passwordResetToken"] = *u.PasswordResetToken
		}
		if u.PasswordResetExpires != nil {
			set["passwordResetExpires"] = u.PasswordResetExpires.UTC()
		}
	}
	if u.Active != nil {
		set["active"] = *u.Active
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
