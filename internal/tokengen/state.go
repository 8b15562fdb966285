package tokengen

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/google"
)

// State is a lifecycle state of the Credential Set handled by a run.
type State int

const (
	Unloaded State = iota
	LoadedValid
	LoadedExpired
	Refreshed
	Authorized
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case LoadedValid:
		return "loaded_valid"
	case LoadedExpired:
		return "loaded_expired"
	case Refreshed:
		return "refreshed"
	case Authorized:
		return "authorized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case LoadedValid, Refreshed, Authorized, Failed:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when a transition is attempted from a
// state it does not start from.
var ErrInvalidTransition = errors.New("invalid state transition")

// Authorizer obtains a new Credential Set interactively.
type Authorizer interface {
	Authorize(ctx context.Context) (*credential.Set, error)
}

// Machine tracks one run through the credential lifecycle.
type Machine struct {
	clock clockwork.Clock
	state State
	set   *credential.Set
	err   error
}

// NewMachine returns a machine in the Unloaded state.
func NewMachine(clock clockwork.Clock) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Machine{clock: clock, state: Unloaded}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Set returns the current Credential Set, if any.
func (m *Machine) Set() *credential.Set { return m.set }

// Err returns the error that moved the machine to Failed.
func (m *Machine) Err() error { return m.err }

func (m *Machine) transition(name string, from ...State) error {
	for _, s := range from {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, name, m.state)
}

// Load reads the token file at path restricted to scopes. A valid set moves
// the machine to LoadedValid and an unusable one to LoadedExpired. An absent
// or unreadable file leaves it Unloaded; the returned error explains why and
// is nil when the file does not exist.
func (m *Machine) Load(path string, scopes []string) error {
	if err := m.transition("load", Unloaded); err != nil {
		return err
	}

	set, err := credential.ReadFile(path, scopes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	m.set = set
	if set.Valid(m.clock.Now()) {
		m.state = LoadedValid
	} else {
		m.state = LoadedExpired
	}
	return nil
}

// CanRefresh reports whether Refresh is possible from the current state.
func (m *Machine) CanRefresh() bool {
	return m.state == LoadedExpired && m.set.CanRefresh()
}

// Refresh performs one refresh exchange of a loaded, expired set.
func (m *Machine) Refresh(ctx context.Context, r google.Refresher) error {
	if err := m.transition("refresh", LoadedExpired); err != nil {
		return err
	}
	if !m.set.CanRefresh() {
		return fmt.Errorf("%w: refresh without a refresh token", ErrInvalidTransition)
	}

	set, err := r.Refresh(ctx, m.set)
	if err != nil {
		return m.fail(err)
	}
	m.set = set
	m.state = Refreshed
	return nil
}

// Authorize replaces whatever was loaded with a freshly authorized set. A
// loaded set that can still be refreshed must be refreshed instead.
func (m *Machine) Authorize(ctx context.Context, a Authorizer) error {
	if err := m.transition("authorize", Unloaded, LoadedExpired); err != nil {
		return err
	}
	if m.CanRefresh() {
		return fmt.Errorf("%w: authorize while a refresh token is available", ErrInvalidTransition)
	}

	set, err := a.Authorize(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.set = set
	m.state = Authorized
	return nil
}

func (m *Machine) fail(err error) error {
	m.state = Failed
	m.err = err
	return err
}
