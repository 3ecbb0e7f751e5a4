// Package submissions provides the PostgreSQL-backed submission repository.
package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/dbx"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
)

// onePendingIndex guards "at most one PENDING submission per (challenge, user)".
const onePendingIndex = "challenge_submissions_one_pending"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Submission) (*models.Submission, error) {
	query :=
		`INSERT INTO challenge_submissions (challenge_id, user_id, description, proof_of_exploit, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	s.Status = models.SubmissionPending

	err := r.db.QueryRowContext(ctx, query, s.ChallengeID, s.UserID, s.Description, s.ProofOfExploit, s.Status).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, onePendingIndex) {
			return nil, common.ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) HasStatus(ctx context.Context, challengeID int64, userID string, status models.SubmissionStatus) (bool, error) {
	query :=
		`SELECT EXISTS (
			SELECT 1 FROM challenge_submissions
			WHERE challenge_id = $1 AND user_id = $2 AND status = $3
		 )`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, challengeID, userID, status).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// ListByChallengeForCreator orders PENDING first, then SUCCESS, then FAIL,
// and by id within a status.
func (r *PostgresRepository) ListByChallengeForCreator(ctx context.Context, challengeID int64, creatorUserID string) ([]models.SubmissionView, error) {
	query :=
		`SELECT s.id, s.challenge_id, s.user_id, s.description, s.proof_of_exploit, s.status, s.created_at, s.updated_at,
			c.name, c.status, c.target_link, u.username
		 FROM challenge_submissions s
		 JOIN challenges c ON c.id = s.challenge_id
		 JOIN users u ON u.id = s.user_id
		 WHERE s.challenge_id = $1 AND c.creator_id = $2
		 ORDER BY CASE s.status WHEN 'PENDING' THEN 0 WHEN 'SUCCESS' THEN 1 ELSE 2 END, s.id ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, challengeID, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.SubmissionView{}
	for rows.Next() {
		var v models.SubmissionView
		if err := rows.Scan(
			&v.ID, &v.ChallengeID, &v.UserID, &v.Description, &v.ProofOfExploit, &v.Status, &v.CreatedAt, &v.UpdatedAt,
			&v.ChallengeName, &v.ChallengeStatus, &v.ChallengeTargetLink, &v.Username,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) GetByIDWithChallenge(ctx context.Context, id int64) (*models.SubmissionWithChallenge, error) {
	query :=
		`SELECT s.id, s.challenge_id, s.user_id, s.description, s.proof_of_exploit, s.status, s.created_at, s.updated_at,
			c.id, c.creator_id, c.name, c.target_link, c.prize, c.methods, c.status, c.note, c.winner_id, c.created_at, c.updated_at
		 FROM challenge_submissions s
		 JOIN challenges c ON c.id = s.challenge_id
		 WHERE s.id = $1
		 `

	var (
		out    models.SubmissionWithChallenge
		winner sql.NullString
	)
	s, c := &out.Submission, &out.Challenge
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.ChallengeID, &s.UserID, &s.Description, &s.ProofOfExploit, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		&c.ID, &c.CreatorID, &c.Name, &c.TargetLink, &c.Prize, &c.Methods, &c.Status, &c.Note, &winner, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if winner.Valid {
		c.WinnerID = &winner.String
	}

	return &out, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status models.SubmissionStatus) error {
	query :=
		`UPDATE challenge_submissions SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3
		 `

	res, err := r.db.ExecContext(ctx, query, id, status, models.SubmissionPending)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrSubmissionDecided
	}
	return nil
}

func (r *PostgresRepository) SetStatusForChallenge(ctx context.Context, challengeID int64, status models.SubmissionStatus, exceptID int64) (int64, error) {
	query :=
		`UPDATE challenge_submissions SET status = $2, updated_at = now()
		 WHERE challenge_id = $1 AND status = $3 AND id <> $4
		 `

	res, err := r.db.ExecContext(ctx, query, challengeID, status, models.SubmissionPending, exceptID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
