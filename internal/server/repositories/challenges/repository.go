package challenges

import (
	"context"

	"github.com/dmitrijs2005/bountyboard/internal/server/models"
)

// Repository persists challenges and the aggregates derived from them.
type Repository interface {
	Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error)
	// ListByStatusAndPage returns page pageIndex (0-based) ordered newest first.
	ListByStatusAndPage(ctx context.Context, status models.ChallengeStatus, pageIndex, pageSize int) ([]models.Challenge, error)
	CountByStatus(ctx context.Context, status models.ChallengeStatus) (int, error)
	GetByID(ctx context.Context, id int64) (*models.ChallengeDetails, error)
	ListByCreator(ctx context.Context, userID string) ([]models.ChallengeWithSubmissions, error)
	Update(ctx context.Context, id int64, upd models.ChallengeUpdate) error
	// CloseWithWinner moves an ON_GOING challenge to DONE. It returns
	// common.ErrChallengeClosed when the challenge is no longer ON_GOING.
	CloseWithWinner(ctx context.Context, id int64, winnerID string) error
	// ListWonByUser returns challenges won by userID, newest id first.
	// limit <= 0 means no limit.
	ListWonByUser(ctx context.Context, userID string, limit int) ([]models.WonChallenge, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}
