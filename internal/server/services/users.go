package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/auth"
	"github.com/dmitrijs2005/bountyboard/internal/server/config"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
	"golang.org/x/crypto/bcrypt"
)

const profileImageKeyPrefix = "users"

// bcryptCost is a variable so tests can hash quickly.
var bcryptCost = 12

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=4,max=10,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Username string `json:"username" validate:"required,min=4,max=10,username"`
	Email    string `json:"email" validate:"required,email"`
	Note     string `json:"note" validate:"max=100"`
	Facebook string `json:"facebook" validate:"omitempty,social=facebook"`
	Telegram string `json:"telegram" validate:"omitempty,social=telegram"`
	Reddit   string `json:"reddit" validate:"omitempty,social=reddit"`
	LinkedIn string `json:"linkedin" validate:"omitempty,social=linkedin"`
	GitHub   string `json:"github" validate:"omitempty,social=github"`
}

// Session is what a successful register or login hands to the transport.
type Session struct {
	UserID    string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// UserService handles accounts, sessions and profiles.
type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	store           storage.ObjectStore
	challenges      *ChallengeService
	log             logging.Logger
	jwtSecret       []byte
	sessionValidity time.Duration
	now             func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, cfg *config.Config, log logging.Logger) *UserService {
	log = log.With("module", "users")
	return &UserService{
		db:              db,
		repomanager:     m,
		store:           store,
		challenges:      NewChallengeService(db, m, store, log),
		log:             log,
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: cfg.SessionValidityDuration,
		now:             time.Now,
	}
}

// SessionValidity is the lifetime of issued session tokens.
func (s *UserService) SessionValidity() time.Duration {
	return s.sessionValidity
}

// Register creates an account and opens a session for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if err := s.checkIdentityFree(ctx, in.Email, in.Username, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fail(ctx, s.log, "hash password", err)
	}

	u, err := repo.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fail(ctx, s.log, "create user", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID, "username", u.Username)
	return s.newSession(ctx, u)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fail(ctx, s.log, "get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	return s.newSession(ctx, u)
}

// UserIDFromToken authenticates a session token.
func (s *UserService) UserIDFromToken(token string) (string, error) {
	if token == "" {
		return "", common.ErrorUnauthorized
	}
	id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return "", common.ErrorUnauthorized
	}
	return id, nil
}

// GetProfile returns the user's profile with the latest achievements.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fail(ctx, s.log, "get user", err)
	}

	achievements, err := s.challenges.ListWon(ctx, userID, profileAchievementsLimit)
	if err != nil {
		return nil, err
	}

	return &ProfileView{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		Note:            u.Note,
		Facebook:        u.FacebookLink,
		Telegram:        u.TelegramLink,
		Reddit:          u.RedditLink,
		LinkedIn:        u.LinkedInLink,
		GitHub:          u.GitHubLink,
		ProfileImageURL: resolveURL(ctx, s.store, s.log, u.ProfileImage),
		CreatedAt:       u.CreatedAt,
		Achievements:    achievements,
	}, nil
}

// UpdateProfile replaces the editable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*ProfileView, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if err := s.checkIdentityFree(ctx, in.Email, in.Username, userID); err != nil {
		return nil, err
	}

	err := s.repomanager.Users(s.db).UpdateProfile(ctx, userID, models.ProfileUpdate{
		Username:     in.Username,
		Email:        in.Email,
		Note:         in.Note,
		FacebookLink: in.Facebook,
		TelegramLink: in.Telegram,
		RedditLink:   in.Reddit,
		LinkedInLink: in.LinkedIn,
		GitHubLink:   in.GitHub,
	})
	if err != nil {
		return nil, fail(ctx, s.log, "update profile", err)
	}

	s.log.Info(ctx, "profile updated", "user_id", userID)
	return s.GetProfile(ctx, userID)
}

// UploadProfileImage stores a new avatar and returns its URL.
func (s *UserService) UploadProfileImage(ctx context.Context, userID string, img *Upload) (string, error) {
	if err := validateImage("profileImage", img); err != nil {
		return "", err
	}

	key := storage.ObjectKey(profileImageKeyPrefix, userID, img.Filename, s.now())
	if err := s.store.Upload(ctx, key, img.Body, img.Size, img.ContentType); err != nil {
		return "", fail(ctx, s.log, "upload profile image", err)
	}

	if err := s.repomanager.Users(s.db).SetProfileImage(ctx, userID, key); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Warn(ctx, "orphaned profile image", "key", key, "error", delErr)
		}
		return "", fail(ctx, s.log, "set profile image", err)
	}

	return resolveURL(ctx, s.store, s.log, key), nil
}

func (s *UserService) checkIdentityFree(ctx context.Context, email, username, excludeUserID string) error {
	repo := s.repomanager.Users(s.db)

	taken, err := repo.EmailTaken(ctx, email, excludeUserID)
	if err != nil {
		return fail(ctx, s.log, "check email", err)
	}
	if taken {
		return common.ErrEmailTaken
	}

	taken, err = repo.UsernameTaken(ctx, username, excludeUserID)
	if err != nil {
		return fail(ctx, s.log, "check username", err)
	}
	if taken {
		return common.ErrUsernameTaken
	}
	return nil
}

func (s *UserService) newSession(ctx context.Context, u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(u.ID, s.jwtSecret, s.sessionValidity)
	if err != nil {
		return nil, fail(ctx, s.log, "generate token", err)
	}
	return &Session{
		UserID:    u.ID,
		Username:  u.Username,
		Token:     token,
		ExpiresAt: s.now().Add(s.sessionValidity),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
