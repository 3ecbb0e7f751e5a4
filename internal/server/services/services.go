// Package services contains the bountyboard business rules: registration and
// profiles, challenge publishing, proof submission, adjudication and the
// leaderboard. Handlers depend on these services only.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
)

// persistenceError hides an unexpected backend failure behind
// common.ErrPersistence while keeping the cause for logs.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
}

// isDomainError reports errors that must reach the caller unchanged.
func isDomainError(err error) bool {
	var verr *common.ValidationError
	return errors.Is(err, common.ErrorNotFound) ||
		errors.Is(err, common.ErrConflict) ||
		errors.Is(err, common.ErrorUnauthorized) ||
		errors.Is(err, common.ErrInvalidCredentials) ||
		errors.As(err, &verr)
}

// fail logs unexpected errors and converts them; domain errors pass through.
func fail(ctx context.Context, log logging.Logger, op string, err error) error {
	if isDomainError(err) {
		return err
	}
	log.Error(ctx, op+" failed", "error", err)
	return persistenceError(op, err)
}

// resolveURL turns an object key into a URL, logging and returning "" when
// the store cannot sign it so one bad image does not fail a whole page.
func resolveURL(ctx context.Context, store storage.ObjectStore, log logging.Logger, key string) string {
	u, err := store.PublicURL(ctx, key)
	if err != nil {
		log.Warn(ctx, "cannot resolve image url", "key", key, "error", err)
		return ""
	}
	return u
}

type ChallengeView struct {
	ID              int64                  `json:"id"`
	CreatorID       string                 `json:"creatorId"`
	CreatorUsername string                 `json:"creatorUsername,omitempty"`
	Name            string                 `json:"name"`
	TargetLink      string                 `json:"targetLink"`
	Prize           int                    `json:"prize"`
	Methods         models.Methods         `json:"methods"`
	Status          models.ChallengeStatus `json:"status"`
	Note            string                 `json:"note"`
	WinnerID        *string                `json:"winnerId"`
	WinnerUsername  *string                `json:"winnerUsername,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func newChallengeView(c models.Challenge) ChallengeView {
	methods := c.Methods
	if methods == nil {
		methods = models.Methods{}
	}
	return ChallengeView{
		ID:         c.ID,
		CreatorID:  c.CreatorID,
		Name:       c.Name,
		TargetLink: c.TargetLink,
		Prize:      c.Prize,
		Methods:    methods,
		Status:     c.Status,
		Note:       c.Note,
		WinnerID:   c.WinnerID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type ChallengePage struct {
	Challenges []ChallengeView `json:"challenges"`
	// Page is 0-based; PageCount is at least 1.
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
}

// ChallengeDetailView adds what the viewer may do with the challenge.
type ChallengeDetailView struct {
	ChallengeView
	IsOwnChallenge       bool `json:"isOwnChallenge"`
	IsChallengeSubmitted bool `json:"isChallengeSubmitted"`
}

type OwnChallengeView struct {
	ChallengeView
	SubmissionCount int `json:"submissionCount"`
	PendingCount    int `json:"pendingCount"`
}

type SubmissionView struct {
	ID                  int64                   `json:"id"`
	ChallengeID         int64                   `json:"challengeId"`
	UserID              string                  `json:"userId"`
	Username            string                  `json:"username,omitempty"`
	Description         string                  `json:"description"`
	ProofURL            string                  `json:"proofOfExploit"`
	Status              models.SubmissionStatus `json:"status"`
	CreatedAt           time.Time               `json:"createdAt"`
	ChallengeName       string                  `json:"challengeName,omitempty"`
	ChallengeStatus     models.ChallengeStatus  `json:"challengeStatus,omitempty"`
	ChallengeTargetLink string                  `json:"challengeTargetLink,omitempty"`
}

type AchievementView struct {
	Challenge    ChallengeView `json:"challenge"`
	SubmissionID int64         `json:"submissionId"`
	Description  string        `json:"description"`
	ProofURL     string        `json:"proofOfExploit"`
}

type ProfileView struct {
	ID              string            `json:"id"`
	Username        string            `json:"username"`
	Email           string            `json:"email"`
	Note            string            `json:"note"`
	Facebook        string            `json:"facebook"`
	Telegram        string            `json:"telegram"`
	Reddit          string            `json:"reddit"`
	LinkedIn        string            `json:"linkedin"`
	GitHub          string            `json:"github"`
	ProfileImageURL string            `json:"profileImage"`
	CreatedAt       time.Time         `json:"createdAt"`
	Achievements    []AchievementView `json:"achievements"`
}
