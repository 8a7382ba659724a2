package services

import (
	"context"
	stderrors "errors"
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	searchZoom        = 13
	flyToDurationSecs = 1.3
)

// MapSession owns the marker collection of one map surface. Markers only change through Search,
// and every search clears them before anything else happens.
type MapSession struct {
	id string

	mu         sync.Mutex
	view       models.View
	markers    []models.Marker
	top        []models.DoctorEntry
	notices    []string
	state      models.SearchState
	lastError  string
	radiusUsed int
	generation uint64
	lastUsed   time.Time
	closed     bool
}

// SessionSnapshot is a consistent copy of a session's state.
type SessionSnapshot struct {
	ID         string               `json:"id"`
	View       models.View          `json:"view"`
	State      models.SearchState   `json:"state"`
	Generation uint64               `json:"generation"`
	RadiusUsed int                  `json:"radius_used,omitempty"`
	Markers    []models.Marker      `json:"markers"`
	Top        []models.DoctorEntry `json:"top"`
	Notices    []string             `json:"notices,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// SearchOutcome is what a session search returns to its caller.
type SearchOutcome struct {
	Generation uint64              `json:"generation"`
	Superseded bool                `json:"superseded"`
	Result     models.SearchResult `json:"result"`
	Session    SessionSnapshot     `json:"session"`
}

func newMapSession(id string, now time.Time) *MapSession {
	return &MapSession{
		id:       id,
		view:     models.DefaultView,
		markers:  []models.Marker{},
		top:      []models.DoctorEntry{},
		state:    models.StateIdle,
		lastUsed: now,
	}
}

// ID returns the session identifier.
func (s *MapSession) ID() string {
	return s.id
}

// Snapshot copies the current state.
func (s *MapSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *MapSession) snapshotLocked() SessionSnapshot {
	return SessionSnapshot{
		ID:         s.id,
		View:       s.view,
		State:      s.state,
		Generation: s.generation,
		RadiusUsed: s.radiusUsed,
		Markers:    append([]models.Marker{}, s.markers...),
		Top:        append([]models.DoctorEntry{}, s.top...),
		Notices:    append([]string(nil), s.notices...),
		Error:      s.lastError,
	}
}

// begin starts a new generation and returns the session to idle with nothing on the map.
func (s *MapSession) begin(now time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.lastUsed = now
	s.state = models.StateIdle
	s.markers = []models.Marker{}
	s.top = []models.DoctorEntry{}
	s.notices = nil
	s.lastError = ""
	s.radiusUsed = 0
	return s.generation
}

// observe records a transition if gen is still the current search.
func (s *MapSession) observe(gen uint64, t models.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation && !s.closed {
		s.state = t.State
	}
}

// apply installs the result of search gen unless a newer search started meanwhile.
// It reports false when the result was discarded.
func (s *MapSession) apply(gen uint64, req SearchRequest, result models.SearchResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.closed {
		return false
	}

	s.state = result.State
	if result.Origin != nil {
		if req.Origin == nil {
			s.view = models.View{Center: *result.Origin, Zoom: searchZoom, Animate: true, Duration: flyToDurationSecs}
		} else {
			s.view = models.View{Center: *result.Origin, Zoom: searchZoom}
		}
	}
	if err != nil {
		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) {
			s.lastError = apiErr.Message
		} else {
			s.lastError = err.Error()
		}
		return true
	}
	s.markers = result.Markers
	s.top = result.Top
	s.notices = result.Notices
	s.radiusUsed = result.RadiusUsed
	return true
}

// SessionStore keeps map sessions in memory and expires idle ones.
type SessionStore struct {
	locator *Locator
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*MapSession
}

func NewSessionStore(locator *Locator, ttl time.Duration) *SessionStore {
	return &SessionStore{
		locator:  locator,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*MapSession),
	}
}

// Create opens a session. When origin is set (a geolocated client) an initial search runs at once.
func (st *SessionStore) Create(ctx context.Context, origin *models.Coordinate) (SessionSnapshot, *SearchOutcome, error) {
	if origin != nil && !origin.Valid() {
		return SessionSnapshot{}, nil, errors.ErrInvalidCoords
	}

	session := newMapSession(uuid.New().String(), st.now())
	st.mu.Lock()
	st.sessions[session.id] = session
	st.mu.Unlock()
	log.Debug().Str("session", session.id).Msg("Map session created")

	if origin == nil {
		return session.Snapshot(), nil, nil
	}
	outcome, err := st.search(ctx, session, SearchRequest{Origin: origin, Specialty: models.AllSpecialties})
	return outcome.Session, &outcome, err
}

// Get returns a live session.
func (st *SessionStore) Get(id string) (*MapSession, error) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	session.mu.Lock()
	session.lastUsed = st.now()
	session.mu.Unlock()
	return session, nil
}

// Search runs a new search on session id. A response that arrives after a newer search on the same
// session began is returned with Superseded set and does not touch the session.
func (st *SessionStore) Search(ctx context.Context, id string, req SearchRequest) (SearchOutcome, error) {
	session, err := st.Get(id)
	if err != nil {
		return SearchOutcome{}, err
	}
	return st.search(ctx, session, req)
}

func (st *SessionStore) search(ctx context.Context, session *MapSession, req SearchRequest) (SearchOutcome, error) {
	gen := session.begin(st.now())

	result, err := st.locator.Locate(ctx, req, func(t models.Transition) {
		session.observe(gen, t)
	})

	applied := session.apply(gen, req, result, err)
	if !applied {
		log.Debug().Str("session", session.id).Uint64("generation", gen).Msg("Discarded superseded search result")
	}
	return SearchOutcome{
		Generation: gen,
		Superseded: !applied,
		Result:     result,
		Session:    session.Snapshot(),
	}, err
}

// Close tears a session down. Searches still in flight for it are discarded when they finish.
func (st *SessionStore) Close(id string) error {
	if !st.remove(id, func(*MapSession) bool { return true }) {
		return errors.ErrSessionNotFound
	}
	return nil
}

// remove deletes session id when shouldRemove agrees. The check runs under both locks.
func (st *SessionStore) remove(id string, shouldRemove func(*MapSession) bool) bool {
	st.mu.Lock()
	session, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return false
	}
	session.mu.Lock()
	if !shouldRemove(session) {
		session.mu.Unlock()
		st.mu.Unlock()
		return false
	}
	delete(st.sessions, id)
	session.closed = true
	session.markers = nil
	session.top = nil
	session.mu.Unlock()
	st.mu.Unlock()
	return true
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Reap closes sessions idle for longer than the TTL and returns how many it removed.
func (st *SessionStore) Reap() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)

	st.mu.RLock()
	var expired []string
	for id, session := range st.sessions {
		session.mu.Lock()
		if session.lastUsed.Before(cutoff) {
			expired = append(expired, id)
		}
		session.mu.Unlock()
	}
	st.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		// The session may have been used since it was listed.
		if st.remove(id, idleSince(cutoff)) {
			removed++
		}
	}
	return removed
}

func idleSince(cutoff time.Time) func(*MapSession) bool {
	return func(s *MapSession) bool {
		return s.lastUsed.Before(cutoff)
	}
}

// RunJanitor reaps expired sessions every interval until ctx is done.
func (st *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Reap(); n > 0 {
				log.Info().Int("sessions", n).Msg("Reaped idle map sessions")
			}
		}
	}
}
