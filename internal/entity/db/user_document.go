package db

import (
	"time"

	"accounts/internal/entity"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserDocument 表示 MongoDB users 集合中的文档。
type UserDocument struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"`
	Name                 string        `bson:"name"`
	Email                string        `bson:"email"`
	Password             string        `bson:"password,omitempty"`
	Role                 string        `bson:"role"`
	PasswordChangedAt    *time.Time    `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   *string       `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time    `bson:"passwordResetExpires,omitempty"`
	Active               *bool         `bson:"active,omitempty"`
	CreatedAt            time.Time     `bson:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt"`
}

// ToEntity converts the document into the domain user. A missing active
// field counts as active.
func (d *UserDocument) ToEntity() *entity.User {
	if d == nil {
		return nil
	}
	active := d.Active == nil || *d.Active
	return &entity.User{
		ID:                   d.ID.Hex(),
		Name:                 d.Name,
		Email:                d.Email,
		Password:             d.Password,
		Role:                 d.Role,
		PasswordChangedAt:    d.PasswordChangedAt,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: d.PasswordResetExpires,
		Active:               active,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// UserDocumentFromEntity builds a document for insertion.
func UserDocumentFromEntity(u *entity.User) *UserDocument {
	if u == nil {
		return nil
	}
	active := u.Active
	return &UserDocument{
		Name:                 u.Name,
		Email:                u.Email,
		Password:             u.Password,
		Role:                 u.Role,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		Active:               &active,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}
