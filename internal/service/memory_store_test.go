package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/repository"
)

// memoryStore is an in-process stand-in for the enrollment and session
// tables. Locks are per enrollment; writes made under a lock are staged and
// only become visible when the locked function returns nil.
type memoryStore struct {
	mu          sync.Mutex
	locks       map[string]*sync.Mutex
	enrollments map[string]models.Enrollment
	sessions    []models.Session

	createErr error
	updateErr error
	lockCalls int
}

func newMemoryStore(enrollments ...models.Enrollment) *memoryStore {
	store := &memoryStore{
		locks:       make(map[string]*sync.Mutex),
		enrollments: make(map[string]models.Enrollment),
	}
	for _, e := range enrollments {
		store.enrollments[e.ID] = e
	}
	return store
}

func (m *memoryStore) addSession(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
}

func (m *memoryStore) sessionsFor(enrollmentID string) []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.EnrollmentID != nil && *s.EnrollmentID == enrollmentID {
			out = append(out, s)
		}
	}
	return out
}

func (m *memoryStore) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockCalls++
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

func (m *memoryStore) WithEnrollmentLock(ctx context.Context, enrollmentID string, fn repository.LockedFunc) error {
	lock := m.lockFor(enrollmentID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	enrollment, ok := m.enrollments[enrollmentID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("lock enrollment: %w", sql.ErrNoRows)
	}

	tx := &memoryTx{store: m}
	if err := fn(ctx, enrollment, tx); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions = append(m.sessions, tx.staged...)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) HasOpenSession(_ context.Context, enrollmentID string) (bool, error) {
	for _, s := range m.sessionsFor(enrollmentID) {
		if s.State.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CountByState(_ context.Context, enrollmentID string, state models.SessionState) (int, error) {
	count := 0
	for _, s := range m.sessionsFor(enrollmentID) {
		if s.State == state {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			copied := s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) List(_ context.Context, filter models.SessionFilter) ([]models.SessionDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SessionDetail
	for _, s := range m.sessions {
		if filter.TutorID != "" && s.TutorID != filter.TutorID {
			continue
		}
		if filter.EnrollmentID != "" && (s.EnrollmentID == nil || *s.EnrollmentID != filter.EnrollmentID) {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, s.State) {
			continue
		}
		out = append(out, models.SessionDetail{Session: s})
	}
	return out, nil
}

func (m *memoryStore) Create(_ context.Context, session *models.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.addSession(*session)
	return nil
}

func (m *memoryStore) UpdateState(_ context.Context, id string, from, to models.SessionState, meetingLink, notes *string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID != id {
			continue
		}
		if m.sessions[i].State != from {
			return repository.ErrStateChanged
		}
		m.sessions[i].State = to
		if meetingLink != nil {
			m.sessions[i].MeetingLink = meetingLink
		}
		if notes != nil {
			m.sessions[i].TutorNotes = notes
		}
		return nil
	}
	return repository.ErrStateChanged
}

type memoryTx struct {
	store  *memoryStore
	staged []models.Session
}

func (t *memoryTx) HasOpenSession(ctx context.Context, enrollmentID string) (bool, error) {
	for _, s := range t.staged {
		if s.State.IsOpen() {
			return true, nil
		}
	}
	return t.store.HasOpenSession(ctx, enrollmentID)
}

func (t *memoryTx) HasCompletedTopic(_ context.Context, enrollmentID, topic string) (bool, error) {
	for _, s := range t.store.sessionsFor(enrollmentID) {
		if s.State == models.SessionStateCompleted && s.Topic != nil && *s.Topic == topic {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) CreateSession(_ context.Context, session *models.Session) error {
	if t.store.createErr != nil {
		return t.store.createErr
	}
	t.staged = append(t.staged, *session)
	return nil
}

func containsState(states []models.SessionState, state models.SessionState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func strPtr(v string) *string {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
