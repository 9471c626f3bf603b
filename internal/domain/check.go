package domain

import "time"

// CheckType distinguishes entry from exit events.
type CheckType string

const (
	CheckTypeEntry CheckType = "in"
	CheckTypeExit  CheckType = "out"
)

// CheckEvent is one immutable check-in/check-out record produced by a
// successful redemption. For a fixed unordered identity pair the types of
// consecutive events on one day strictly alternate.
type CheckEvent struct {
	ID                 string
	CorrelationID      string
	OfferingIdentityID string
	ScanningIdentityID string
	Type               CheckType
	ScanTime           time.Time
}
