// Package common contains shared constants and sentinel errors used across
// bountyboard components.
package common

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "bb_session"

// DefaultPageSize is the number of challenges shown per listing page.
const DefaultPageSize = 8
