// Package httpapi exposes the bountyboard services over a JSON REST API
// built on gin. Sessions travel in an HttpOnly cookie or a Bearer header.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	maxMultipartMemory = 8 << 20
	// maxUploadBody caps an upload request: a 5 MB image plus form overhead.
	maxUploadBody = 5<<20 + 512<<10
)

type Users interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	UserIDFromToken(token string) (string, error)
	SessionValidity() time.Duration
	GetProfile(ctx context.Context, userID string) (*services.ProfileView, error)
	UpdateProfile(ctx context.Context, userID string, in services.UpdateProfileInput) (*services.ProfileView, error)
	UploadProfileImage(ctx context.Context, userID string, img *services.Upload) (string, error)
}

type Challenges interface {
	Create(ctx context.Context, creatorID string, in services.CreateChallengeInput) (*services.ChallengeView, error)
	List(ctx context.Context, status models.ChallengeStatus, pageIndex int) (*services.ChallengePage, error)
	Get(ctx context.Context, id int64, viewerID string) (*services.ChallengeDetailView, error)
	Update(ctx context.Context, id int64, actorID string, in services.UpdateChallengeInput) (*services.ChallengeView, error)
	ListOwn(ctx context.Context, userID string) ([]services.OwnChallengeView, error)
	ListWon(ctx context.Context, userID string, limit int) ([]services.AchievementView, error)
}

type Submissions interface {
	Submit(ctx context.Context, userID string, challengeID int64, in services.SubmitInput, proof *services.Upload) (*services.SubmissionView, error)
	ListForCreator(ctx context.Context, challengeID int64, userID string) ([]services.SubmissionView, error)
}

type Adjudicator interface {
	Decide(ctx context.Context, submissionID int64, actingUserID string, decision services.Decision) error
}

type Leaderboard interface {
	Compute(ctx context.Context) ([]models.LeaderboardEntry, error)
}

type Images interface {
	URL(ctx context.Context, path string) (string, error)
}

// Handler holds the services behind the REST API.
type Handler struct {
	users        Users
	challenges   Challenges
	submissions  Submissions
	adjudication Adjudicator
	leaderboard  Leaderboard
	images       Images
	logger       logging.Logger
	secureCookie bool
}

type Option func(*Handler)

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(h *Handler) { h.secureCookie = secure }
}

func NewHandler(u Users, c Challenges, s Submissions, a Adjudicator, lb Leaderboard, img Images, l logging.Logger, opts ...Option) *Handler {
	h := &Handler{
		users:        u,
		challenges:   c,
		submissions:  s,
		adjudication: a,
		leaderboard:  lb,
		images:       img,
		logger:       l.With("module", "http"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Router builds the gin engine with every /api/v1 route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxMultipartMemory
	r.Use(gin.Recovery(), h.accessLog())

	api := r.Group("/api/v1")
	{
		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", h.register)
		authRoutes.POST("/login", h.login)
		authRoutes.POST("/logout", h.logout)

		challengeRoutes := api.Group("/challenges")
		challengeRoutes.GET("", h.listChallenges)
		challengeRoutes.GET("/:id", h.optionalAuth(), h.getChallenge)
		challengeRoutes.POST("", h.requireAuth(), h.createChallenge)
		challengeRoutes.PATCH("/:id", h.requireAuth(), h.updateChallenge)
		challengeRoutes.POST("/:id/submissions", h.requireAuth(), limitBody(maxUploadBody), h.submit)
		challengeRoutes.GET("/:id/submissions", h.requireAuth(), h.listSubmissions)

		api.POST("/submissions/:id/decision", h.requireAuth(), h.decide)
		api.GET("/leaderboard", h.getLeaderboard)
		api.GET("/images", h.redirectImage)

		me := api.Group("/me")
		me.Use(h.requireAuth())
		me.GET("", h.getProfile)
		me.PUT("", h.updateProfile)
		me.PUT("/image", limitBody(maxUploadBody), h.uploadProfileImage)
		me.GET("/challenges", h.listOwnChallenges)
		me.GET("/achievements", h.listAchievements)
	}

	return r
}
