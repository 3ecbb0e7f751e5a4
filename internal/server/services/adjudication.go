package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/dbx"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/cache"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// AdjudicationService lets a challenge creator accept or reject submissions.
type AdjudicationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.LeaderboardCache
	log         logging.Logger
}

func NewAdjudicationService(db *sql.DB, m repomanager.RepositoryManager, c cache.LeaderboardCache, log logging.Logger) *AdjudicationService {
	return &AdjudicationService{
		db:          db,
		repomanager: m,
		cache:       c,
		log:         log.With("module", "adjudication"),
	}
}

// Decide applies decision to a submission on behalf of actingUserID.
//
// Only the challenge creator may decide; anyone else sees ErrorNotFound.
// Reject fails this submission only. Accept, in one transaction, closes the
// challenge with the submitter as winner, fails every other pending
// submission and marks this one SUCCESS. Losing a race to another accept
// yields ErrChallengeClosed with nothing changed.
func (s *AdjudicationService) Decide(ctx context.Context, submissionID int64, actingUserID string, decision Decision) error {
	if decision != DecisionAccept && decision != DecisionReject {
		return common.NewValidationError("action", "must be one of [accept reject]")
	}

	sub, err := s.repomanager.Submissions(s.db).GetByIDWithChallenge(ctx, submissionID)
	if err != nil {
		return fail(ctx, s.log, "get submission", err)
	}
	if sub.Challenge.CreatorID != actingUserID {
		return common.ErrorNotFound
	}
	if sub.UserID == actingUserID {
		return common.ErrSelfJudging
	}
	if sub.Challenge.Status == models.ChallengeDone {
		return common.ErrChallengeClosed
	}
	if sub.Status != models.SubmissionPending {
		return common.ErrSubmissionDecided
	}

	if decision == DecisionReject {
		if err := s.repomanager.Submissions(s.db).SetStatus(ctx, sub.ID, models.SubmissionFail); err != nil {
			return s.adjudicationError(ctx, sub, err)
		}
		s.log.Info(ctx, "submission rejected", "submission_id", sub.ID, "challenge_id", sub.ChallengeID)
		return nil
	}

	var failed int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// the challenge row is locked first so concurrent accepts serialize on it
		if err := s.repomanager.Challenges(tx).CloseWithWinner(ctx, sub.ChallengeID, sub.UserID); err != nil {
			return err
		}
		var err error
		failed, err = s.repomanager.Submissions(tx).SetStatusForChallenge(ctx, sub.ChallengeID, models.SubmissionFail, sub.ID)
		if err != nil {
			return err
		}
		return s.repomanager.Submissions(tx).SetStatus(ctx, sub.ID, models.SubmissionSuccess)
	})
	if err != nil {
		return s.adjudicationError(ctx, sub, err)
	}

	s.log.Info(ctx, "challenge closed", "challenge_id", sub.ChallengeID, "winner_id", sub.UserID,
		"submission_id", sub.ID, "rivals_failed", failed)

	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn(ctx, "leaderboard cache invalidation failed", "error", err)
	}
	return nil
}

func (s *AdjudicationService) adjudicationError(ctx context.Context, sub *models.SubmissionWithChallenge, err error) error {
	if errors.Is(err, common.ErrChallengeClosed) || errors.Is(err, common.ErrSubmissionDecided) {
		return err
	}
	s.log.Error(ctx, "adjudication failed", "submission_id", sub.ID, "challenge_id", sub.ChallengeID, "error", err)
	return fmt.Errorf("%w: %w", common.ErrAdjudicationFailed, err)
}
