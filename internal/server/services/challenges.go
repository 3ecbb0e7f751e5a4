package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
)

// profileAchievementsLimit is how many won challenges the profile shows.
const profileAchievementsLimit = 3

type CreateChallengeInput struct {
	Name       string          `json:"name" validate:"required,bountytext"`
	TargetLink string          `json:"targetLink" validate:"required,targeturl"`
	Prize      int             `json:"prize" validate:"min=0,max=1000000"`
	Methods    []models.Method `json:"methods" validate:"required,min=1,unique,dive,method"`
	Note       string          `json:"note" validate:"required,max=300,bountytext"`
}

// UpdateChallengeInput changes only the fields that are present. A present
// field is validated like on create, so a present zero prize is applied.
type UpdateChallengeInput struct {
	Name       *string         `json:"name" validate:"omitempty,bountytext"`
	TargetLink *string         `json:"targetLink" validate:"omitempty,targeturl"`
	Prize      *int            `json:"prize" validate:"omitempty,min=0,max=1000000"`
	Methods    []models.Method `json:"methods" validate:"omitempty,min=1,unique,dive,method"`
	Note       *string         `json:"note" validate:"omitempty,max=300,bountytext"`
}

type ChallengeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	log         logging.Logger
}

func NewChallengeService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, log logging.Logger) *ChallengeService {
	return &ChallengeService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "challenges"),
	}
}

func (s *ChallengeService) Create(ctx context.Context, creatorID string, in CreateChallengeInput) (*ChallengeView, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Challenges(s.db).Create(ctx, &models.Challenge{
		CreatorID:  creatorID,
		Name:       in.Name,
		TargetLink: in.TargetLink,
		Prize:      in.Prize,
		Methods:    models.Methods(in.Methods),
		Note:       in.Note,
	})
	if err != nil {
		return nil, fail(ctx, s.log, "create challenge", err)
	}

	s.log.Info(ctx, "challenge created", "challenge_id", c.ID, "creator_id", creatorID)
	v := newChallengeView(*c)
	return &v, nil
}

// List returns page pageIndex (0-based) of challenges with the given status.
// An empty status means ON_GOING.
func (s *ChallengeService) List(ctx context.Context, status models.ChallengeStatus, pageIndex int) (*ChallengePage, error) {
	if status == "" {
		status = models.ChallengeOnGoing
	}
	if !status.Valid() {
		return nil, common.NewValidationError("status", "must be one of [ON_GOING DONE]")
	}
	if pageIndex < 0 {
		return nil, common.NewValidationError("index", "must not be negative")
	}

	repo := s.repomanager.Challenges(s.db)

	items, err := repo.ListByStatusAndPage(ctx, status, pageIndex, common.DefaultPageSize)
	if err != nil {
		return nil, fail(ctx, s.log, "list challenges", err)
	}
	total, err := repo.CountByStatus(ctx, status)
	if err != nil {
		return nil, fail(ctx, s.log, "count challenges", err)
	}

	page := &ChallengePage{
		Challenges: make([]ChallengeView, 0, len(items)),
		Page:       pageIndex,
		PageCount:  PageCount(total, common.DefaultPageSize),
	}
	for _, c := range items {
		page.Challenges = append(page.Challenges, newChallengeView(c))
	}
	return page, nil
}

// PageCount is ceil(total/size), but never less than 1.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Get returns a challenge with viewer flags. viewerID may be empty.
func (s *ChallengeService) Get(ctx context.Context, id int64, viewerID string) (*ChallengeDetailView, error) {
	d, err := s.repomanager.Challenges(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get challenge", err)
	}

	v := &ChallengeDetailView{ChallengeView: newChallengeView(d.Challenge)}
	v.CreatorUsername = d.CreatorUsername
	v.WinnerUsername = d.WinnerUsername

	if viewerID == "" {
		return v, nil
	}

	v.IsOwnChallenge = d.CreatorID == viewerID
	if !v.IsOwnChallenge {
		v.IsChallengeSubmitted, err = s.repomanager.Submissions(s.db).HasStatus(ctx, id, viewerID, models.SubmissionPending)
		if err != nil {
			return nil, fail(ctx, s.log, "check submission", err)
		}
	}
	return v, nil
}

// Update edits a challenge owned by actorID. Non-owners get ErrorNotFound.
func (s *ChallengeService) Update(ctx context.Context, id int64, actorID string, in UpdateChallengeInput) (*ChallengeView, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Challenges(s.db)

	d, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get challenge", err)
	}
	if d.CreatorID != actorID {
		return nil, common.ErrorNotFound
	}

	upd := models.ChallengeUpdate{
		Name:       in.Name,
		TargetLink: in.TargetLink,
		Prize:      in.Prize,
		Note:       in.Note,
	}
	if in.Methods != nil {
		upd.Methods = models.Methods(in.Methods)
	}

	if err := repo.Update(ctx, id, upd); err != nil {
		return nil, fail(ctx, s.log, "update challenge", err)
	}

	updated, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, s.log, "get challenge", err)
	}
	v := newChallengeView(updated.Challenge)
	v.CreatorUsername = updated.CreatorUsername
	v.WinnerUsername = updated.WinnerUsername
	return &v, nil
}

// ListOwn returns the user's challenges with submission counters.
func (s *ChallengeService) ListOwn(ctx context.Context, userID string) ([]OwnChallengeView, error) {
	list, err := s.repomanager.Challenges(s.db).ListByCreator(ctx, userID)
	if err != nil {
		return nil, fail(ctx, s.log, "list own challenges", err)
	}

	out := make([]OwnChallengeView, 0, len(list))
	for _, c := range list {
		v := OwnChallengeView{ChallengeView: newChallengeView(c.Challenge), SubmissionCount: len(c.Submissions)}
		for _, sub := range c.Submissions {
			if sub.Status == models.SubmissionPending {
				v.PendingCount++
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// ListWon returns the challenges userID won with proof URLs resolved.
// limit <= 0 returns all of them.
func (s *ChallengeService) ListWon(ctx context.Context, userID string, limit int) ([]AchievementView, error) {
	won, err := s.repomanager.Challenges(s.db).ListWonByUser(ctx, userID, limit)
	if err != nil {
		return nil, fail(ctx, s.log, "list achievements", err)
	}

	out := make([]AchievementView, 0, len(won))
	for _, w := range won {
		out = append(out, AchievementView{
			Challenge:    newChallengeView(w.Challenge),
			SubmissionID: w.Submission.ID,
			Description:  w.Submission.Description,
			ProofURL:     resolveURL(ctx, s.store, s.log, w.Submission.ProofOfExploit),
		})
	}
	return out, nil
}
