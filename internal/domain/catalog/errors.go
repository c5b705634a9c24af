package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// FetchError means the provider exhausted its retry budget. The pass must abort.
type FetchError struct {
	Resource string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Resource, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedRecordError describes one record that could not be used. ID is empty when unknown.
type MalformedRecordError struct {
	Kind string
	ID   string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed %s record: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("malformed %s record %s: %v", e.Kind, e.ID, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func IsFetchFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsMalformed(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}

// Validate checks the invariants a game record must hold before it can be stored.
func (g *Game) Validate() error {
	if g.ID == "" {
		return &MalformedRecordError{Kind: "game", Err: errors.New("missing id")}
	}
	if !g.Category.Valid() {
		return &MalformedRecordError{Kind: "game", ID: g.ID, Err: fmt.Errorf("unknown category %q", g.Category)}
	}
	seen := make(map[string]struct{}, len(g.Objectives))
	for _, o := range g.Objectives {
		if o.ID == "" {
			return &MalformedRecordError{Kind: "game", ID: g.ID, Err: errors.New("objective without id")}
		}
		if _, dup := seen[o.ID]; dup {
			return &MalformedRecordError{Kind: "game", ID: g.ID, Err: fmt.Errorf("duplicate objective %s", o.ID)}
		}
		seen[o.ID] = struct{}{}
	}
	return nil
}

func (u *User) Validate() error {
	if u.ID == "" {
		return &MalformedRecordError{Kind: "user", Err: errors.New("missing id")}
	}
	for id, ug := range u.OwnedGames {
		if ug.GameID != id {
			return &MalformedRecordError{Kind: "user", ID: u.ID, Err: fmt.Errorf("owned game key %s holds %s", id, ug.GameID)}
		}
	}
	return nil
}
