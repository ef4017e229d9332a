package converter

import (
	"accounts/internal/entity"
	"accounts/internal/entity/dto"
)

// UserToSummary converts an entity.User to dto.UserSummary.
func UserToSummary(u *entity.User) dto.UserSummary {
	if u == nil {
		return dto.UserSummary{}
	}
	return dto.UserSummary{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// UsersToSummaries converts a slice of entity.User to dto.UserSummary.
func UsersToSummaries(users []entity.User) []dto.UserSummary {
	summaries := make([]dto.UserSummary, len(users))
	for i := range users {
		summaries[i] = UserToSummary(&users[i])
	}
	return summaries
}
