package users

import (
	"context"

	"github.com/dmitrijs2005/bountyboard/internal/server/models"
)

// Repository is the identity store.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail includes the password hash.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// EmailTaken and UsernameTaken ignore the row of excludeUserID ("" for none).
	EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error)
	UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error)
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) error
	SetProfileImage(ctx context.Context, id, key string) error
}
