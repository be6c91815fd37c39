package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	"github.com/noah-isme/tutoring-orchestrator/internal/repository"
	"github.com/noah-isme/tutoring-orchestrator/pkg/mail"
)

// memoryState is a tiny in-memory state store shared by the repository stubs.
type memoryState struct {
	mu            sync.Mutex
	users         map[string]*models.User
	sessions      map[string]*models.Session
	classRequests map[string]*models.ClassRequest
	hourEntries   []models.HourEntry
	batches       int
	batchErr      error
	readErr       error
	// beforeBatch runs inside BatchWrite ahead of the ops, with the lock held.
	beforeBatch func(*memoryState)
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:         map[string]*models.User{},
		sessions:      map[string]*models.Session{},
		classRequests: map[string]*models.ClassRequest{},
	}
}

func (m *memoryState) addUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := u
	m.users[u.UID] = &copy
}

func (m *memoryState) addSession(s models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := s
	m.sessions[s.ID] = &copy
}

func (m *memoryState) addClassRequest(r models.ClassRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := r
	m.classRequests[r.ID] = &copy
}

func (m *memoryState) classes(uid string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil
	}
	return append([]string(nil), u.Classes...)
}

type usersStub struct{ *memoryState }

func (s usersStub) GetByID(ctx context.Context, uid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	u, ok := s.users[uid]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (s usersStub) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s usersStub) ListTutorsByClass(ctx context.Context, class string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.HasClass(class) {
			out = append(out, *u)
		}
	}
	return out, nil
}

type sessionsStub struct{ *memoryState }

func (s sessionsStub) GetByID(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *session
	return &copy, nil
}

func (s sessionsStub) ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []models.Session
	for _, session := range s.sessions {
		if session.Status == status {
			out = append(out, *session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type classRequestsStub struct{ *memoryState }

func (s classRequestsStub) GetByID(ctx context.Context, id string) (*models.ClassRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	r, ok := s.classRequests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *r
	return &copy, nil
}

type hourEntriesStub struct{ *memoryState }

func (s hourEntriesStub) Append(ctx context.Context, entry *models.HourEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.hourEntries {
		if existing.SessionID != nil && entry.SessionID != nil && *existing.SessionID == *entry.SessionID {
			return false, nil
		}
	}
	if entry.ID == "" {
		entry.ID = "he-" + *entry.SessionID
	}
	s.hourEntries = append(s.hourEntries, *entry)
	return true, nil
}

type storeStub struct{ *memoryState }

// BatchWrite mirrors the conditional SQL of the real ops against the in-memory maps.
func (s storeStub) BatchWrite(ctx context.Context, ops ...repository.BatchOp) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	s.batches++
	if s.beforeBatch != nil {
		s.beforeBatch(s.memoryState)
	}
	affected := make([]int64, len(ops))
	for i, op := range ops {
		switch op := op.(type) {
		case repository.ApproveClassRequest:
			r, ok := s.classRequests[op.ID]
			if !ok || r.Status != models.ClassRequestStatusPending {
				continue
			}
			r.Status = models.ClassRequestStatusApproved
			r.AutoApproved = op.AutoApproved
			at, uid, role := op.DecidedAt, op.DecidedByUID, op.DecidedByRole
			r.DecidedAt, r.DecidedByUID, r.DecidedByRole = &at, &uid, &role
			affected[i] = 1
		case repository.GrantClass:
			if op.RequestID != "" {
				r, ok := s.classRequests[op.RequestID]
				if !ok || r.Status != models.ClassRequestStatusApproved {
					continue
				}
			}
			u, ok := s.users[op.UID]
			if !ok || u.HasClass(op.Class) {
				continue
			}
			u.Classes = append(u.Classes, op.Class)
			affected[i] = 1
		case repository.CompleteSession:
			session, ok := s.sessions[op.ID]
			if !ok || session.Status != models.SessionStatusScheduled {
				continue
			}
			session.Status = models.SessionStatusCompleted
			at := op.AutoCompletedAt
			session.AutoCompletedAt = &at
			affected[i] = 1
		default:
			return nil, errors.New("unexpected op " + op.Name())
		}
	}
	return affected, nil
}

// recordingSender captures messages and fails for addresses listed in fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	fail map[string]int
	hits map[string]int
}

func newRecordingSender(failing ...string) *recordingSender {
	fail := map[string]int{}
	for _, f := range failing {
		fail[f] = -1
	}
	return &recordingSender{fail: fail, hits: map[string]int{}}
}

func (s *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[msg.To]++
	if remaining, ok := s.fail[msg.To]; ok && remaining != 0 {
		if remaining > 0 {
			s.fail[msg.To] = remaining - 1
		}
		return errors.New("smtp: 550 mailbox unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.To)
	}
	sort.Strings(out)
	return out
}

// memoryLedger behaves like the Redis SETNX ledger.
type memoryLedger struct {
	mu     sync.Mutex
	claims map[string]struct{}
	err    error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{claims: map[string]struct{}{}}
}

func (l *memoryLedger) Claim(ctx context.Context, key, recipient string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	k := key + ":" + recipient
	if _, ok := l.claims[k]; ok {
		return false, nil
	}
	l.claims[k] = struct{}{}
	return true, nil
}

func (l *memoryLedger) Release(ctx context.Context, key, recipient string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, key+":"+recipient)
	return nil
}

// recordingDispatcher captures notifications without sending them.
type recordingDispatcher struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n models.Notification) []models.DeliveryOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
	outcomes := make([]models.DeliveryOutcome, len(n.Messages))
	for i, m := range n.Messages {
		outcomes[i] = models.DeliveryOutcome{To: m.To, Status: models.DeliverySent, Attempts: 1}
	}
	return outcomes
}

func (d *recordingDispatcher) templates() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.notifications))
	for _, n := range d.notifications {
		out = append(out, n.Template)
	}
	return out
}

func (d *recordingDispatcher) last() models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.notifications) == 0 {
		return models.Notification{}
	}
	return d.notifications[len(d.notifications)-1]
}
