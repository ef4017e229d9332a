package dto

import "time"

// UserSummary is the public representation of a user. Password and reset
// token fields are never part of it.
type UserSummary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// UserData wraps a single user in the response envelope.
type UserData struct {
	User UserSummary `json:"user"`
}

// UsersData wraps a user list in the response envelope.
type UsersData struct {
	Users []UserSummary `json:"users"`
}

// UserResponse is returned by the profile endpoints.
type UserResponse struct {
	Status string   `json:"status"`
	Data   UserData `json:"data"`
}

// UserListResponse is the response for listing users.
type UserListResponse struct {
	Status  string    `json:"status"`
	Results int       `json:"results"`
	Data    UsersData `json:"data"`
}

// UpdateMeRequest is the payload of PATCH /updateMe. Password fields are
// accepted only so that their presence can be rejected.
type UpdateMeRequest struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Password        string  `json:"password,omitempty"`
	PasswordConfirm string  `json:"passwordConfirm,omitempty"`
}

// DeleteMeRequest is the payload of DELETE /deleteMe.
type DeleteMeRequest struct {
	Password string `json:"password"`
}
