package domain

import "time"

// CredentialPurpose tags what a signed credential may be used for.
type CredentialPurpose string

const (
	// PurposeAccess authenticates HTTP requests and socket handshakes.
	PurposeAccess CredentialPurpose = "access"
	// PurposePresence is the short-lived rotating credential pushed to
	// gate identities and redeemed by scanners.
	PurposePresence CredentialPurpose = "presence"
)

// Credential is the decoded form of a signed, time-boxed token. The
// CorrelationID is set only for presence credentials and lets the redemption
// path distinguish (and reject replays of) successive credentials minted for
// the same subject.
type Credential struct {
	SubjectID     string
	Purpose       CredentialPurpose
	CorrelationID string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}
