// Package users provides the PostgreSQL-backed identity store.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/dbx"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
)

const (
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

const profileColumns = `id, username, email, note, fb_link, tele_link, reddit_link, linkedin_link, github_link, profile_image, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.Note,
		&user.FacebookLink, &user.TelegramLink, &user.RedditLink, &user.LinkedInLink, &user.GitHubLink,
		&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id::text <> $2)`, email, excludeUserID)
}

func (r *PostgresRepository) UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id::text <> $2)`, username, excludeUserID)
}

func (r *PostgresRepository) exists(ctx context.Context, query, value, excludeUserID string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, value, excludeUserID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) error {
	query :=
		`UPDATE users SET
			username = $2, email = $3, note = $4,
			fb_link = $5, tele_link = $6, reddit_link = $7, linkedin_link = $8, github_link = $9,
			updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id,
		upd.Username, upd.Email, upd.Note,
		upd.FacebookLink, upd.TelegramLink, upd.RedditLink, upd.LinkedInLink, upd.GitHubLink,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) SetProfileImage(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_image = $2, updated_at = now() WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	switch {
	case dbx.IsUniqueViolation(err, emailConstraint):
		return common.ErrEmailTaken
	case dbx.IsUniqueViolation(err, usernameConstraint):
		return common.ErrUsernameTaken
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
