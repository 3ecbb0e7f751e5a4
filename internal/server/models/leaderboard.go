package models

// LeaderboardEntry aggregates a user's won challenges.
type LeaderboardEntry struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	ProfileImage      string `json:"profileImage"`
	AchievementsCount int    `json:"achievementsCount"`
	TotalPrize        int64  `json:"totalPrize"`
}
