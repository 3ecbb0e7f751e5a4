package services

import (
	"context"
	"database/sql"
	"sort"

	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/cache"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
)

// LeaderboardService ranks users by the challenges they won.
type LeaderboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	cache       cache.LeaderboardCache
	log         logging.Logger
}

func NewLeaderboardService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, c cache.LeaderboardCache, log logging.Logger) *LeaderboardService {
	return &LeaderboardService{
		db:          db,
		repomanager: m,
		store:       store,
		cache:       c,
		log:         log.With("module", "leaderboard"),
	}
}

// Compute returns the ranked leaderboard, from cache when possible.
// Cache failures degrade to a database read.
func (s *LeaderboardService) Compute(ctx context.Context) ([]models.LeaderboardEntry, error) {
	entries, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn(ctx, "leaderboard cache read failed", "error", err)
	}
	if ok {
		return entries, nil
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the leaderboard and stores it in the cache. The result
// is dropped by the cache when an invalidation happened meanwhile.
func (s *LeaderboardService) Refresh(ctx context.Context) ([]models.LeaderboardEntry, error) {
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.Warn(ctx, "leaderboard cache generation read failed", "error", genErr)
	}

	entries, err := s.repomanager.Challenges(s.db).Leaderboard(ctx)
	if err != nil {
		return nil, fail(ctx, s.log, "compute leaderboard", err)
	}

	Rank(entries)
	for i := range entries {
		entries[i].ProfileImage = resolveURL(ctx, s.store, s.log, entries[i].ProfileImage)
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, gen, entries); err != nil {
			s.log.Warn(ctx, "leaderboard cache write failed", "error", err)
		}
	}
	return entries, nil
}

// Rank orders entries by achievements, then total prize, both descending,
// and breaks remaining ties by user id.
func Rank(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AchievementsCount != b.AchievementsCount {
			return a.AchievementsCount > b.AchievementsCount
		}
		if a.TotalPrize != b.TotalPrize {
			return a.TotalPrize > b.TotalPrize
		}
		return a.UserID < b.UserID
	})
}
