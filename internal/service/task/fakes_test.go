package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/internal/service/achievement"
)

// fakeClock returns a pinned time, advanced explicitly by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memTaskStore is an in-memory TaskStore. failSave makes the next SaveTask
// return an error.
type memTaskStore struct {
	mu       sync.Mutex
	tasks    map[string]model.Task
	failSave bool
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[string]model.Task)}
}

func (s *memTaskStore) SaveTask(ctx context.Context, t *model.Task) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return nil, errors.New("store unavailable")
	}
	s.tasks[t.ID] = *t
	saved := *t
	return &saved, nil
}

func (s *memTaskStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := t
	return &copied, nil
}

func (s *memTaskStore) ListTasksByAssignee(ctx context.Context, userID string) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.AssignedTo == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTaskStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

// memUserStore is an in-memory UserStore. failSave makes SaveUser return an
// error while reads keep working.
type memUserStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	failSave bool
}

func newMemUserStore(users ...model.User) *memUserStore {
	s := &memUserStore{users: make(map[string]model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) SaveUser(ctx context.Context, u *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return nil, errors.New("user store unavailable")
	}
	s.users[u.ID] = *u
	saved := *u
	return &saved, nil
}

func (s *memUserStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := u
	return &copied, nil
}

type memProjectStore struct {
	projects map[string]model.Project
}

func (s *memProjectStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	copied := p
	return &copied, nil
}

// recordingNotifier captures messages instead of publishing them.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, message, severity string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type testEnv struct {
	service  *Service
	tasks    *memTaskStore
	users    *memUserStore
	clock    *fakeClock
	notifier *recordingNotifier
}

func newTestEnv(t0 time.Time, users ...model.User) *testEnv {
	taskStore := newMemTaskStore()
	userStore := newMemUserStore(users...)
	projectStore := &memProjectStore{projects: map[string]model.Project{
		"proj-1": {ID: "proj-1", Name: "Apollo"},
		"proj-2": {ID: "proj-2", Name: "Hermes"},
	}}
	notifier := &recordingNotifier{}
	clk := newFakeClock(t0)

	evaluator := achievement.NewEvaluator(
		achievement.DefaultCatalog(),
		achievement.NewMemoryAnnouncedSet(),
		notifier,
		zap.NewNop(),
	).WithLocation(time.UTC)

	svc := NewService(
		taskStore, userStore, projectStore,
		notifier, evaluator, clk, DefaultXPConfig(), zap.NewNop(),
	)

	return &testEnv{
		service:  svc,
		tasks:    taskStore,
		users:    userStore,
		clock:    clk,
		notifier: notifier,
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s model.TaskStatus) *model.TaskStatus { return &s }

func priorityPtr(p model.TaskPriority) *model.TaskPriority { return &p }
