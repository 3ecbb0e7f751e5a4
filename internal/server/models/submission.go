package models

import "time"

type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "PENDING"
	SubmissionSuccess SubmissionStatus = "SUCCESS"
	SubmissionFail    SubmissionStatus = "FAIL"
)

// Submission is a proof-of-exploit sent by a user against a challenge.
// ProofOfExploit is an object-store key.
type Submission struct {
	ID             int64
	ChallengeID    int64
	UserID         string
	Description    string
	ProofOfExploit string
	Status         SubmissionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SubmissionView is a Submission as listed to the challenge creator.
type SubmissionView struct {
	Submission
	ChallengeName       string
	ChallengeStatus     ChallengeStatus
	ChallengeTargetLink string
	Username            string
}

// SubmissionWithChallenge is a Submission together with its parent challenge.
type SubmissionWithChallenge struct {
	Submission
	Challenge Challenge
}
