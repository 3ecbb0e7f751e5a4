package submissions

import (
	"context"

	"github.com/dmitrijs2005/bountyboard/internal/server/models"
)

// Repository persists challenge submissions.
type Repository interface {
	// Create inserts a PENDING submission. A second PENDING submission for the
	// same (challenge, user) yields common.ErrAlreadySubmitted.
	Create(ctx context.Context, s *models.Submission) (*models.Submission, error)
	HasStatus(ctx context.Context, challengeID int64, userID string, status models.SubmissionStatus) (bool, error)
	// ListByChallengeForCreator returns nothing unless creatorUserID owns the challenge.
	ListByChallengeForCreator(ctx context.Context, challengeID int64, creatorUserID string) ([]models.SubmissionView, error)
	GetByIDWithChallenge(ctx context.Context, id int64) (*models.SubmissionWithChallenge, error)
	// SetStatus decides a PENDING submission. Anything else yields
	// common.ErrSubmissionDecided.
	SetStatus(ctx context.Context, id int64, status models.SubmissionStatus) error
	// SetStatusForChallenge moves every PENDING submission of the challenge,
	// except exceptID, to status and returns how many rows changed.
	SetStatusForChallenge(ctx context.Context, challengeID int64, status models.SubmissionStatus, exceptID int64) (int64, error)
}
