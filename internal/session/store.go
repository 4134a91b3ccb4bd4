package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"pajangan-promoshot/internal/promo"
)

type Role string

const (
	RolePerson  Role = "person"
	RoleProduct Role = "product"
)

var (
	ErrBusy        = errors.New("generation already in progress")
	ErrUnknownRole = errors.New("unknown image role")
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RolePerson, RoleProduct:
		return Role(value), nil
	}
	return "", ErrUnknownRole
}

// State is the UI state of one user. Values returned by the store are
// snapshots; images are shared but never mutated.
type State struct {
	Person      *promo.ImageFile
	Product     *promo.ImageFile
	Background  string
	AspectRatio promo.AspectRatio
	ProductName string

	// Awaiting is the role the next single photo fills, set by chat surfaces.
	Awaiting Role

	Busy    bool
	Err     string
	Results []string

	LastActivity time.Time
}

func (s State) Ready() bool {
	return s.Person.Valid() && s.Product.Valid()
}

type Options struct {
	DefaultBackground string
	TTL               time.Duration
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	defaults State
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &Store{
		sessions: make(map[string]*State),
		defaults: State{
			Background:  opts.DefaultBackground,
			AspectRatio: promo.DefaultAspectRatio,
		},
		ttl: ttl,
		now: time.Now,
	}
}

func (s *Store) Get(key string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked(s.getOrCreateLocked(key))
}

// Update applies fn to the state of key and returns the new snapshot.
func (s *Store) Update(key string, fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(key)
	if fn != nil {
		fn(st)
	}
	return s.snapshotLocked(st)
}

// SetImage stores a successfully normalized image and clears any error.
// Failed uploads go through SetError so the previous image is kept.
func (s *Store) SetImage(key string, role Role, img promo.ImageFile) (State, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return State{}, err
	}

	return s.Update(key, func(st *State) {
		stored := img
		if role == RolePerson {
			st.Person = &stored
		} else {
			st.Product = &stored
		}
		st.Err = ""
	}), nil
}

func (s *Store) SetError(key string, msg string) State {
	return s.Update(key, func(st *State) { st.Err = msg })
}

// Begin marks key busy and clears the previous error and results.
func (s *Store) Begin(key string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(key)
	if st.Busy {
		return s.snapshotLocked(st), ErrBusy
	}
	st.Busy = true
	st.Err = ""
	st.Results = nil
	return s.snapshotLocked(st), nil
}

// Finish clears busy and stores either results or the error message.
func (s *Store) Finish(key string, results []string, errMsg string) State {
	return s.Update(key, func(st *State) {
		st.Busy = false
		if errMsg != "" {
			st.Err = errMsg
			st.Results = nil
			return
		}
		st.Err = ""
		st.Results = append([]string(nil), results...)
	})
}

// Reset restores the defaults for key. It refuses with ErrBusy while a
// batch is running so the batch cannot write results into a fresh session.
func (s *Store) Reset(key string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(key)
	if st.Busy {
		return s.snapshotLocked(st), ErrBusy
	}
	*st = s.defaults
	st.LastActivity = s.now()
	return s.snapshotLocked(st), nil
}

// Sweep drops idle sessions that are not generating. It returns how many
// were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	n := 0
	for key, st := range s.sessions {
		if st.Busy || st.LastActivity.After(cutoff) {
			continue
		}
		delete(s.sessions, key)
		n++
	}
	return n
}

// Janitor sweeps every interval until ctx is done.
func (s *Store) Janitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) getOrCreateLocked(key string) *State {
	if st, ok := s.sessions[key]; ok {
		st.LastActivity = s.now()
		return st
	}

	st := s.defaults
	st.LastActivity = s.now()
	s.sessions[key] = &st
	return &st
}

func (s *Store) snapshotLocked(st *State) State {
	out := *st
	out.Results = append([]string(nil), st.Results...)
	return out
}
