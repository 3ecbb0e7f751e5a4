package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
)

const proofKeyPrefix = "proofs"

type SubmitInput struct {
	Description string `json:"description" validate:"max=500"`
}

type SubmissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	log         logging.Logger
	now         func() time.Time
}

func NewSubmissionService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, log logging.Logger) *SubmissionService {
	return &SubmissionService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "submissions"),
		now:         time.Now,
	}
}

// Submit stores proof for challengeID on behalf of userID.
//
// Business rules are checked before anything is uploaded: the challenge must
// exist, must not be the user's own, must still be ON_GOING and must not
// already hold a PENDING submission from the user. A failed upload leaves no
// row behind; a lost insert race removes the uploaded object.
func (s *SubmissionService) Submit(ctx context.Context, userID string, challengeID int64, in SubmitInput, proof *Upload) (*SubmissionView, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := validateImage("proofOfExploit", proof); err != nil {
		return nil, err
	}

	challenge, err := s.repomanager.Challenges(s.db).GetByID(ctx, challengeID)
	if err != nil {
		return nil, fail(ctx, s.log, "get challenge", err)
	}
	if challenge.CreatorID == userID {
		return nil, common.ErrOwnChallenge
	}
	if challenge.Status == models.ChallengeDone {
		return nil, common.ErrChallengeClosed
	}

	subs := s.repomanager.Submissions(s.db)

	pending, err := subs.HasStatus(ctx, challengeID, userID, models.SubmissionPending)
	if err != nil {
		return nil, fail(ctx, s.log, "check submission", err)
	}
	if pending {
		return nil, common.ErrAlreadySubmitted
	}

	key := storage.ObjectKey(proofKeyPrefix, userID, proof.Filename, s.now())
	if err := s.store.Upload(ctx, key, proof.Body, proof.Size, proof.ContentType); err != nil {
		return nil, fail(ctx, s.log, "upload proof", err)
	}

	sub, err := subs.Create(ctx, &models.Submission{
		ChallengeID:    challengeID,
		UserID:         userID,
		Description:    in.Description,
		ProofOfExploit: key,
	})
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Warn(ctx, "orphaned proof object", "key", key, "error", delErr)
		}
		if errors.Is(err, common.ErrAlreadySubmitted) {
			return nil, err
		}
		return nil, fail(ctx, s.log, "create submission", err)
	}

	s.log.Info(ctx, "submission created", "submission_id", sub.ID, "challenge_id", challengeID, "user_id", userID)

	return &SubmissionView{
		ID:          sub.ID,
		ChallengeID: sub.ChallengeID,
		UserID:      sub.UserID,
		Description: sub.Description,
		ProofURL:    resolveURL(ctx, s.store, s.log, sub.ProofOfExploit),
		Status:      sub.Status,
		CreatedAt:   sub.CreatedAt,
	}, nil
}

// ListForCreator lists the submissions of a challenge to its creator.
// Anyone else gets ErrorNotFound, as if the challenge did not exist.
func (s *SubmissionService) ListForCreator(ctx context.Context, challengeID int64, userID string) ([]SubmissionView, error) {
	challenge, err := s.repomanager.Challenges(s.db).GetByID(ctx, challengeID)
	if err != nil {
		return nil, fail(ctx, s.log, "get challenge", err)
	}
	if challenge.CreatorID != userID {
		return nil, common.ErrorNotFound
	}

	list, err := s.repomanager.Submissions(s.db).ListByChallengeForCreator(ctx, challengeID, userID)
	if err != nil {
		return nil, fail(ctx, s.log, "list submissions", err)
	}

	out := make([]SubmissionView, 0, len(list))
	for _, v := range list {
		out = append(out, SubmissionView{
			ID:                  v.ID,
			ChallengeID:         v.ChallengeID,
			UserID:              v.UserID,
			Username:            v.Username,
			Description:         v.Description,
			ProofURL:            resolveURL(ctx, s.store, s.log, v.ProofOfExploit),
			Status:              v.Status,
			CreatedAt:           v.CreatedAt,
			ChallengeName:       v.ChallengeName,
			ChallengeStatus:     v.ChallengeStatus,
			ChallengeTargetLink: v.ChallengeTargetLink,
		})
	}
	return out, nil
}
