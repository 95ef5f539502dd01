package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medonboard/internal/intake"
	"github.com/pdiddy/medonboard/pkg/types"
)

type fixedClassifier struct{}

func (fixedClassifier) Classify(context.Context, string) (types.Category, error) {
	return types.CategoryCaseStudy, nil
}

type noEntities struct{}

func (noEntities) Extract(context.Context, string) ([]types.EntitySpan, error) {
	return nil, nil
}

type discard struct{}

func (discard) Append(context.Context, []types.CaseRecord) error { return nil }

func factory(id types.Identity) *intake.Workflow {
	return intake.New(fixedClassifier{}, noEntities{}, discard{}, id.Username)
}

func TestCreateAndGet(t *testing.T) {
	m := NewManager(factory, 1, 2)

	expert := m.Create(types.Identity{Username: "expert", Role: types.RoleExpert})
	trainee := m.Create(types.Identity{Username: "trainee", Role: types.RoleTrainee})
	assert.NotEqual(t, expert.Token, trainee.Token)
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get(expert.Token)
	require.True(t, ok)
	assert.Same(t, expert, got)
	assert.NotNil(t, got.Workflow)

	got, ok = m.Get(trainee.Token)
	require.True(t, ok)
	assert.Nil(t, got.Workflow, "trainees have no intake workflow")

	_, ok = m.Get("nope")
	assert.False(t, ok)
}

func TestSessionsHaveSeparateDrafts(t *testing.T) {
	m := NewManager(factory, 0, 0)
	a := m.Create(types.Identity{Username: "a", Role: types.RoleExpert})
	b := m.Create(types.Identity{Username: "b", Role: types.RoleExpert})

	a.Workflow.SetNote("note from a")
	assert.Equal(t, intake.StateDrafted, a.Workflow.State())
	assert.Equal(t, intake.StateEmpty, b.Workflow.State())
}

func TestDelete(t *testing.T) {
	m := NewManager(factory, 1, 1)
	s := m.Create(types.Identity{Username: "expert", Role: types.RoleExpert})

	assert.True(t, m.Delete(s.Token))
	assert.False(t, m.Delete(s.Token))
	_, ok := m.Get(s.Token)
	assert.False(t, ok)
}

func TestAnalyzeLimiter(t *testing.T) {
	m := NewManager(factory, 0.001, 2)
	s := m.Create(types.Identity{Username: "expert", Role: types.RoleExpert})

	assert.True(t, s.Analyze.Allow())
	assert.True(t, s.Analyze.Allow())
	assert.False(t, s.Analyze.Allow(), "burst exhausted")

	unlimited := NewManager(factory, 0, 0).Create(types.Identity{Username: "x", Role: types.RoleExpert})
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Analyze.Allow())
	}
}

func TestConcurrentCreate(t *testing.T) {
	m := NewManager(factory, 1, 1)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Create(types.Identity{Username: "t", Role: types.RoleTrainee})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.Len())
}

func TestIdleSessionsExpire(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(factory, 0, 0, WithIdleTimeout(time.Hour), WithClock(clock))

	active := m.Create(types.Identity{Username: "active", Role: types.RoleExpert})
	idle := m.Create(types.Identity{Username: "idle", Role: types.RoleExpert})

	now = now.Add(45 * time.Minute)
	_, ok := m.Get(active.Token)
	require.True(t, ok)

	now = now.Add(30 * time.Minute)
	_, ok = m.Get(active.Token)
	assert.True(t, ok, "used within the timeout")
	_, ok = m.Get(idle.Token)
	assert.False(t, ok, "idle past the timeout")
	assert.Equal(t, 1, m.Len())

	now = now.Add(2 * time.Hour)
	m.Create(types.Identity{Username: "trainee", Role: types.RoleTrainee})
	assert.Equal(t, 1, m.Len(), "create sweeps expired sessions")
}

func TestNoIdleTimeoutKeepsSessions(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	m := NewManager(factory, 0, 0, WithClock(func() time.Time { return now }))
	s := m.Create(types.Identity{Username: "expert", Role: types.RoleExpert})

	now = now.Add(24 * 365 * time.Hour)
	_, ok := m.Get(s.Token)
	assert.True(t, ok)
}
