// Package challenges provides the PostgreSQL-backed challenge repository.
package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/dbx"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
)

const challengeColumns = `c.id, c.creator_id, c.name, c.target_link, c.prize, c.methods, c.status, c.note, c.winner_id, c.created_at, c.updated_at`

// PostgresRepository implements challenge storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row scanner, c *models.Challenge, extra ...any) error {
	var winner sql.NullString
	dest := append([]any{
		&c.ID, &c.CreatorID, &c.Name, &c.TargetLink, &c.Prize, &c.Methods,
		&c.Status, &c.Note, &winner, &c.CreatedAt, &c.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	if winner.Valid {
		c.WinnerID = &winner.String
	}
	return nil
}

// Create inserts an ON_GOING challenge and fills in the generated fields.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error) {
	query :=
		`INSERT INTO challenges (creator_id, name, target_link, prize, methods, status, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at
		 `

	c.Status = models.ChallengeOnGoing
	c.WinnerID = nil

	err := r.db.QueryRowContext(ctx, query,
		c.CreatorID, c.Name, c.TargetLink, c.Prize, c.Methods, c.Status, c.Note,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) ListByStatusAndPage(ctx context.Context, status models.ChallengeStatus, pageIndex, pageSize int) ([]models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c
		 WHERE c.status = $1
		 ORDER BY c.created_at DESC, c.id DESC
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, status, pageSize, pageIndex*pageSize)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Challenge{}
	for rows.Next() {
		var c models.Challenge
		if err := scanChallenge(rows, &c); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, status models.ChallengeStatus) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM challenges WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.ChallengeDetails, error) {
	query := `SELECT ` + challengeColumns + `, cu.username, wu.username
		 FROM challenges c
		 JOIN users cu ON cu.id = c.creator_id
		 LEFT JOIN users wu ON wu.id = c.winner_id
		 WHERE c.id = $1
		 `

	d := &models.ChallengeDetails{}
	var winnerName sql.NullString
	err := scanChallenge(r.db.QueryRowContext(ctx, query, id), &d.Challenge, &d.CreatorUsername, &winnerName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if winnerName.Valid {
		d.WinnerUsername = &winnerName.String
	}

	return d, nil
}

// ListByCreator returns the creator's challenges newest first, each with its
// submissions in id order.
func (r *PostgresRepository) ListByCreator(ctx context.Context, userID string) ([]models.ChallengeWithSubmissions, error) {
	query := `SELECT ` + challengeColumns + `,
			s.id, s.user_id, s.description, s.proof_of_exploit, s.status, s.created_at, s.updated_at
		 FROM challenges c
		 LEFT JOIN challenge_submissions s ON s.challenge_id = c.id
		 WHERE c.creator_id = $1
		 ORDER BY c.created_at DESC, c.id DESC, s.id ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.ChallengeWithSubmissions{}
	for rows.Next() {
		var (
			c        models.Challenge
			sID      sql.NullInt64
			sUser    sql.NullString
			sDesc    sql.NullString
			sProof   sql.NullString
			sStatus  sql.NullString
			sCreated sql.NullTime
			sUpdated sql.NullTime
		)
		if err := scanChallenge(rows, &c, &sID, &sUser, &sDesc, &sProof, &sStatus, &sCreated, &sUpdated); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		if n := len(result); n == 0 || result[n-1].ID != c.ID {
			result = append(result, models.ChallengeWithSubmissions{Challenge: c, Submissions: []models.Submission{}})
		}
		if sID.Valid {
			last := &result[len(result)-1]
			last.Submissions = append(last.Submissions, models.Submission{
				ID:             sID.Int64,
				ChallengeID:    c.ID,
				UserID:         sUser.String,
				Description:    sDesc.String,
				ProofOfExploit: sProof.String,
				Status:         models.SubmissionStatus(sStatus.String),
				CreatedAt:      sCreated.Time,
				UpdatedAt:      sUpdated.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// Update writes only the fields present in upd. Status and winner are owned
// by CloseWithWinner and cannot be changed here.
func (r *PostgresRepository) Update(ctx context.Context, id int64, upd models.ChallengeUpdate) error {
	if upd.Empty() {
		return nil
	}

	sets := make([]string, 0, 6)
	args := []any{id}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.TargetLink != nil {
		add("target_link", *upd.TargetLink)
	}
	if upd.Prize != nil {
		add("prize", *upd.Prize)
	}
	if upd.Methods != nil {
		add("methods", upd.Methods)
	}
	if upd.Note != nil {
		add("note", *upd.Note)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE challenges SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) CloseWithWinner(ctx context.Context, id int64, winnerID string) error {
	query :=
		`UPDATE challenges SET status = $3, winner_id = $2, updated_at = now()
		 WHERE id = $1 AND status = $4
		 `

	res, err := r.db.ExecContext(ctx, query, id, winnerID, models.ChallengeDone, models.ChallengeOnGoing)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrChallengeClosed
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) ListWonByUser(ctx context.Context, userID string, limit int) ([]models.WonChallenge, error) {
	query := `SELECT ` + challengeColumns + `,
			s.id, s.description, s.proof_of_exploit, s.status, s.created_at, s.updated_at
		 FROM challenges c
		 JOIN challenge_submissions s ON s.challenge_id = c.id AND s.user_id = c.winner_id AND s.status = $2
		 WHERE c.winner_id = $1
		 ORDER BY c.id DESC
		 `
	args := []any{userID, models.SubmissionSuccess}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.WonChallenge{}
	for rows.Next() {
		var w models.WonChallenge
		s := &w.Submission
		if err := scanChallenge(rows, &w.Challenge,
			&s.ID, &s.Description, &s.ProofOfExploit, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		s.ChallengeID = w.ID
		s.UserID = userID
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

// Leaderboard aggregates DONE challenges per winner. Profile images are
// returned as object-store keys.
func (r *PostgresRepository) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	query :=
		`SELECT u.id, u.username, u.profile_image, COUNT(c.id), COALESCE(SUM(c.prize), 0)
		 FROM challenges c
		 JOIN users u ON u.id = c.winner_id
		 WHERE c.status = $1
		 GROUP BY u.id, u.username, u.profile_image
		 ORDER BY COUNT(c.id) DESC, COALESCE(SUM(c.prize), 0) DESC, u.id ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, models.ChallengeDone)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.ProfileImage, &e.AchievementsCount, &e.TotalPrize); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}
