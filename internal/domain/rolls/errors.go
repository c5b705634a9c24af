package rolls

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlreadyActive     = errors.New("an instance of this event is already active")
	ErrPartnerRequired   = errors.New("event requires a partner")
	ErrPartnerNotAllowed = errors.New("event is solo")
	ErrNotRerollable     = errors.New("event does not allow rerolls")
	ErrNoRerollsLeft     = errors.New("no rerolls left")
	ErrInvalidTransition = errors.New("invalid roll transition")
	ErrWrongGameCount    = errors.New("wrong number of games for event")
	ErrFinalStageReached = errors.New("roll already reached its final stage")
	ErrSelfPartner       = errors.New("partner must be another user")
)

// UnknownEventError flags a roll whose event name is outside the fixed rule table.
// It indicates corrupted snapshot data; the roll is left untouched.
type UnknownEventError struct {
	Event  string
	UserID string
}

func (e *UnknownEventError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("unknown roll event %q", e.Event)
	}
	return fmt.Sprintf("unknown roll event %q on user %s", e.Event, e.UserID)
}

// AmbiguousOutcomeError is raised when both sides of a pvp roll satisfy the win predicate at once.
type AmbiguousOutcomeError struct {
	Event     string
	UserID    string
	PartnerID string
}

func (e *AmbiguousOutcomeError) Error() string {
	return fmt.Sprintf("ambiguous %s outcome: both %s and %s completed", e.Event, e.UserID, e.PartnerID)
}

// CooldownError is returned by Begin while the event is still cooling down.
type CooldownError struct {
	Event string
	Until time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s is on cooldown until %s", e.Event, e.Until.Format(time.RFC3339))
}

func IsUnknownEvent(err error) bool {
	var ue *UnknownEventError
	return errors.As(err, &ue)
}

func IsAmbiguous(err error) bool {
	var ae *AmbiguousOutcomeError
	return errors.As(err, &ae)
}

func IsOnCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}
