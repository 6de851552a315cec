// Package storetest provides an in-memory implementation of every store
// repository for policy-layer tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/spacedrep"
	"github.com/abhisek/kidquest/internal/store"
)

type pairKey struct {
	student string
	skill   string
}

// Memory implements all store repository interfaces over maps.
type Memory struct {
	mu sync.Mutex

	skills    map[string]skillgraph.Skill
	students  map[string]store.Student
	progress  map[pairKey]store.SkillProgress
	exercises []exercise.Exercise
	attempts  []store.Attempt
	unlocks   []store.Unlock
	reviews   map[pairKey]spacedrep.State
	sessions  map[string]store.LearningSession
	events    []store.LLMRequestEvent
	seq       int64

	// InsertErr, when set, is returned by InsertExercise.
	InsertErr error
	// UnlockErr, when set, fails UpsertUnlock and any CommitAnswer carrying
	// an unlock.
	UnlockErr error
}

var (
	_ store.SkillRepo    = (*Memory)(nil)
	_ store.StudentRepo  = (*Memory)(nil)
	_ store.ProgressRepo = (*Memory)(nil)
	_ store.ExerciseRepo = (*Memory)(nil)
	_ store.AttemptRepo  = (*Memory)(nil)
	_ store.UnlockRepo   = (*Memory)(nil)
	_ store.ReviewRepo   = (*Memory)(nil)
	_ store.SessionRepo  = (*Memory)(nil)
	_ store.EventRepo    = (*Memory)(nil)
	_ store.AnswerRepo   = (*Memory)(nil)
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		skills:   make(map[string]skillgraph.Skill),
		students: make(map[string]store.Student),
		progress: make(map[pairKey]store.SkillProgress),
		reviews:  make(map[pairKey]spacedrep.State),
		sessions: make(map[string]store.LearningSession),
	}
}

func (m *Memory) UpsertSkill(_ context.Context, s skillgraph.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills[s.ID] = s
	return nil
}

func (m *Memory) GetSkill(_ context.Context, id string) (skillgraph.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skills[id]
	if !ok {
		return skillgraph.Skill{}, fmt.Errorf("skill %q: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) ListSkills(_ context.Context) ([]skillgraph.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]skillgraph.Skill, 0, len(m.skills))
	for _, s := range m.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out, nil
}

func (m *Memory) NextInDomain(ctx context.Context, id string) (*skillgraph.Skill, error) {
	cur, err := m.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	all, _ := m.ListSkills(ctx)
	var domain []skillgraph.Skill
	for _, s := range all {
		if s.Subject == cur.Subject && s.Domain == cur.Domain {
			domain = append(domain, s)
		}
	}
	next, ok := skillgraph.NextAfter(domain, cur)
	if !ok {
		return nil, nil
	}
	return &next, nil
}

func (m *Memory) UpsertStudent(_ context.Context, s store.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.students[s.ID] = s
	return nil
}

func (m *Memory) GetStudent(_ context.Context, id string) (store.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return store.Student{}, fmt.Errorf("student %q: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) GetOrCreateProgress(_ context.Context, studentID, skillID string) (store.SkillProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{studentID, skillID}
	p, ok := m.progress[k]
	if !ok {
		p = store.SkillProgress{StudentID: studentID, SkillID: skillID, Level: 1, UpdatedAt: time.Now()}
		m.progress[k] = p
	}
	return p, nil
}

func (m *Memory) GetProgress(_ context.Context, studentID, skillID string) (store.SkillProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[pairKey{studentID, skillID}]
	if !ok {
		return store.SkillProgress{}, fmt.Errorf("progress %s/%s: %w", studentID, skillID, store.ErrNotFound)
	}
	return p, nil
}

func (m *Memory) SaveProgress(_ context.Context, p *store.SkillProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkVersion(p); err != nil {
		return err
	}
	m.saveProgress(p)
	return nil
}

func (m *Memory) checkVersion(p *store.SkillProgress) error {
	cur, ok := m.progress[pairKey{p.StudentID, p.SkillID}]
	if !ok || cur.Version != p.Version {
		return fmt.Errorf("save progress %s/%s: %w", p.StudentID, p.SkillID, store.ErrConflict)
	}
	return nil
}

func (m *Memory) saveProgress(p *store.SkillProgress) {
	k := pairKey{p.StudentID, p.SkillID}
	if cur := m.progress[k]; cur.MasteredAt != nil && p.MasteredAt == nil {
		p.MasteredAt = cur.MasteredAt
	}
	p.Version++
	p.UpdatedAt = time.Now()
	m.progress[k] = *p
}

// CommitAnswer checks every precondition before touching any map, so a
// failure leaves the store unchanged.
func (m *Memory) CommitAnswer(_ context.Context, c store.AnswerCommit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkVersion(c.Progress); err != nil {
		return false, err
	}
	created := false
	if c.Unlock != nil {
		if m.UnlockErr != nil {
			return false, m.UnlockErr
		}
		created = !m.hasUnlock(*c.Unlock)
	}

	p := *c.Progress
	m.saveProgress(&p)
	*c.Progress = p
	m.reviews[pairKey{p.StudentID, p.SkillID}] = c.Review
	m.appendAttempt(c.Attempt)
	if created {
		m.addUnlock(*c.Unlock)
	}
	return created, nil
}

func (m *Memory) ListProgress(_ context.Context, studentID string) ([]store.SkillProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.SkillProgress
	for k, p := range m.progress {
		if k.student == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

func (m *Memory) InsertExercise(_ context.Context, e exercise.Exercise) (exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return exercise.Exercise{}, m.InsertErr
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Provenance == "" {
		e.Provenance = exercise.ProvenanceHuman
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.Difficulty = exercise.ClampDifficulty(e.Difficulty)
	m.exercises = append(m.exercises, e)
	return e, nil
}

func (m *Memory) GetExercise(_ context.Context, id string) (exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.exercises {
		if e.ID == id {
			return e, nil
		}
	}
	return exercise.Exercise{}, fmt.Errorf("exercise %q: %w", id, store.ErrNotFound)
}

func (m *Memory) ListValidated(_ context.Context, skillID string) ([]exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []exercise.Exercise
	for _, e := range m.exercises {
		if e.SkillID == skillID && e.Validated {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Difficulty < out[j].Difficulty })
	return out, nil
}

func (m *Memory) CountValidated(ctx context.Context, skillID string) (int, error) {
	list, err := m.ListValidated(ctx, skillID)
	return len(list), err
}

// Exercises returns every stored exercise in insertion order.
func (m *Memory) Exercises() []exercise.Exercise {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]exercise.Exercise(nil), m.exercises...)
}

func (m *Memory) AppendAttempt(_ context.Context, a store.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendAttempt(a)
	return nil
}

func (m *Memory) appendAttempt(a store.Attempt) {
	m.seq++
	a.Sequence = m.seq
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	m.attempts = append(m.attempts, a)
}

func (m *Memory) RecentExerciseIDs(_ context.Context, studentID, skillID string, since time.Time) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, a := range m.attempts {
		if a.StudentID == studentID && a.SkillID == skillID && !a.Timestamp.Before(since) {
			out[a.ExerciseID] = true
		}
	}
	return out, nil
}

// Attempts returns every appended attempt in order.
func (m *Memory) Attempts() []store.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Attempt(nil), m.attempts...)
}

func (m *Memory) UpsertUnlock(_ context.Context, u store.Unlock) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UnlockErr != nil {
		return false, m.UnlockErr
	}
	if m.hasUnlock(u) {
		return false, nil
	}
	m.addUnlock(u)
	return true, nil
}

func (m *Memory) hasUnlock(u store.Unlock) bool {
	for _, x := range m.unlocks {
		if x.StudentID == u.StudentID && x.SkillID == u.SkillID {
			return true
		}
	}
	return false
}

func (m *Memory) addUnlock(u store.Unlock) {
	if u.UnlockedAt.IsZero() {
		u.UnlockedAt = time.Now()
	}
	m.unlocks = append(m.unlocks, u)
}

func (m *Memory) ListUnlocks(_ context.Context, studentID string) ([]store.Unlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Unlock
	for _, u := range m.unlocks {
		if u.StudentID == studentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) GetReview(_ context.Context, studentID, skillID string) (*spacedrep.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.reviews[pairKey{studentID, skillID}]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *Memory) SaveReview(_ context.Context, studentID, skillID string, st spacedrep.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[pairKey{studentID, skillID}] = st
	return nil
}

func (m *Memory) DueReviews(_ context.Context, studentID string, now time.Time) ([]store.DueReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.DueReview
	for k, st := range m.reviews {
		if k.student == studentID && !st.NextReviewDate.After(now) {
			out = append(out, store.DueReview{SkillID: k.skill, State: st})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].State.NextReviewDate.Before(out[j].State.NextReviewDate)
	})
	return out, nil
}

func (m *Memory) CreateSession(_ context.Context, s *store.LearningSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.sessions[s.ID]; dup {
		return fmt.Errorf("session %q already exists", s.ID)
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id string) (store.LearningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return store.LearningSession{}, fmt.Errorf("session %q: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) SaveSession(_ context.Context, s *store.LearningSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %q: %w", s.ID, store.ErrNotFound)
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.events = append(m.events, store.LLMRequestEvent{
		LLMRequestEventData: data,
		ID:                  len(m.events) + 1,
		Sequence:            m.seq,
		Timestamp:           time.Now(),
	})
	return nil
}

func (m *Memory) QueryLLMEvents(_ context.Context, opts store.QueryOpts) ([]store.LLMRequestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.LLMRequestEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if opts.Purpose != "" && e.Purpose != opts.Purpose {
			continue
		}
		if opts.After > 0 && e.Sequence <= opts.After {
			continue
		}
		if opts.Before > 0 && e.Sequence >= opts.Before {
			continue
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) GetLLMEvent(_ context.Context, id int) (*store.LLMRequestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *Memory) LLMUsageByPurpose(_ context.Context) ([]store.LLMUsage, error) {
	return m.usage(func(e store.LLMRequestEvent) store.LLMUsage { return store.LLMUsage{Purpose: e.Purpose} }), nil
}

func (m *Memory) LLMUsageByModel(_ context.Context) ([]store.LLMUsage, error) {
	return m.usage(func(e store.LLMRequestEvent) store.LLMUsage { return store.LLMUsage{Model: e.Model} }), nil
}

func (m *Memory) usage(key func(store.LLMRequestEvent) store.LLMUsage) []store.LLMUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := make(map[store.LLMUsage]int)
	var out []store.LLMUsage
	var latency []int64
	for _, e := range m.events {
		k := key(e)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, k)
			latency = append(latency, 0)
		}
		out[i].Calls++
		out[i].InputTokens += e.InputTokens
		out[i].OutputTokens += e.OutputTokens
		latency[i] += e.LatencyMs
	}
	for i := range out {
		out[i].AvgLatencyMs = latency[i] / int64(out[i].Calls)
	}
	return out
}

// LLMEvents returns every recorded LLM event in order.
func (m *Memory) LLMEvents() []store.LLMRequestEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.LLMRequestEvent(nil), m.events...)
}
