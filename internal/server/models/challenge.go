package models

import "time"

type ChallengeStatus string

const (
	ChallengeOnGoing ChallengeStatus = "ON_GOING"
	ChallengeDone    ChallengeStatus = "DONE"
)

func (s ChallengeStatus) Valid() bool {
	return s == ChallengeOnGoing || s == ChallengeDone
}

// Challenge is a bounty posted by a creator. Status is DONE exactly when
// WinnerID is set.
type Challenge struct {
	ID         int64
	CreatorID  string
	Name       string
	TargetLink string
	Prize      int
	Methods    Methods
	Status     ChallengeStatus
	Note       string
	WinnerID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ChallengeDetails is a Challenge with the creator's and winner's usernames.
type ChallengeDetails struct {
	Challenge
	CreatorUsername string
	WinnerUsername  *string
}

// ChallengeWithSubmissions is a creator's challenge with every submission
// made against it.
type ChallengeWithSubmissions struct {
	Challenge
	Submissions []Submission
}

// ChallengeUpdate carries the fields to change. Nil means "leave as is".
type ChallengeUpdate struct {
	Name       *string
	TargetLink *string
	Prize      *int
	Methods    Methods
	Note       *string
}

// Empty reports whether the update changes nothing.
func (u ChallengeUpdate) Empty() bool {
	return u.Name == nil && u.TargetLink == nil && u.Prize == nil && u.Methods == nil && u.Note == nil
}

// WonChallenge pairs a challenge with the winning submission of a user.
type WonChallenge struct {
	Challenge
	Submission Submission
}
