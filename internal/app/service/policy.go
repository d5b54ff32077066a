package service

import (
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"golang.org/x/crypto/bcrypt"
)

// Decision is the outcome of evaluating a code's access policy. Rejections
// are first-class outcomes, not errors: the HTTP layer maps each to a
// specific response.
type Decision int

const (
	DecisionAllowed Decision = iota
	DecisionDisabled
	DecisionExpired
	DecisionScanLimitReached
	DecisionPaused
	DecisionPasswordRequired
	DecisionPasswordIncorrect
)

// String returns the wire label used in responses and logs.
func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionDisabled:
		return "disabled"
	case DecisionExpired:
		return "expired"
	case DecisionScanLimitReached:
		return "scan_limit_reached"
	case DecisionPaused:
		return "paused"
	case DecisionPasswordRequired:
		return "password_required"
	case DecisionPasswordIncorrect:
		return "password_incorrect"
	default:
		return "unknown"
	}
}

// Terminal reports whether the owner cannot bring the code back by flipping
// a toggle: disabled, expired, and limit-reached are dead ends.
func (d Decision) Terminal() bool {
	switch d {
	case DecisionDisabled, DecisionExpired, DecisionScanLimitReached:
		return true
	}
	return false
}

// EvaluatePolicy decides whether a scan of code may proceed at instant now.
// It is a pure function over the record's stored fields.
//
// Check order is part of the contract: terminal disqualifications come before
// the password gate, so a scanner of an expired code is told "expired" rather
// than prompted for a credential. When several conditions hold, the first
// match in this order wins.
func EvaluatePolicy(code *model.QRCode, now time.Time, suppliedPassword string) Decision {
	if code.Status == model.StatusDisabled {
		return DecisionDisabled
	}

	// ExpiresAt is authoritative for time-based expiry; the status column
	// is only a manual override.
	if code.Status == model.StatusExpired {
		return DecisionExpired
	}
	if code.ExpiresAt != nil && !now.Before(*code.ExpiresAt) {
		return DecisionExpired
	}

	// The cached counter is authoritative here. Reading it outside the
	// recording transaction makes the cap advisory under concurrent bursts;
	// that race is accepted rather than serializing all scans per code.
	if code.MaxScans != nil && code.TotalScans >= *code.MaxScans {
		return DecisionScanLimitReached
	}

	if code.Status == model.StatusPaused {
		return DecisionPaused
	}

	if code.PasswordHash != "" {
		if suppliedPassword == "" {
			return DecisionPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(code.PasswordHash), []byte(suppliedPassword)) != nil {
			return DecisionPasswordIncorrect
		}
	}

	return DecisionAllowed
}
