package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediskeys "waypoint-sequencer/internal/common/redis"
	"waypoint-sequencer/internal/goals"
	"waypoint-sequencer/internal/mission"
	"waypoint-sequencer/internal/models"
	"waypoint-sequencer/internal/navigation"
	"waypoint-sequencer/internal/navigation/navtest"
)

type memoryCache struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	ttls   map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *memoryCache) HSet(_ context.Context, key string, values map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	for k, v := range values {
		m.hashes[key][k] = fmt.Sprintf("%v", v)
	}
	return nil
}

func (m *memoryCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memoryCache) Expire(_ context.Context, key string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = d
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestWriteStoresHash(t *testing.T) {
	mem := newMemoryCache()
	p := NewStatusPublisher(mem, quietLogger(), time.Hour, time.Second)

	err := p.Write(context.Background(), mission.Status{
		MissionID: "m-1",
		State:     mission.StateWaiting,
		Outcome:   mission.OutcomeRunning,
		Frame:     "map",
		GoalTotal: 3,
		GoalCount: 2,
		Cursor:    1,
		Progress:  &mission.Progress{GoalIndex: 1, X: 1.5, DistanceRemaining: 2.25},
	})
	require.NoError(t, err)

	hash, err := p.Read(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "WaitingForResult", hash["state"])
	assert.Equal(t, "RUNNING", hash["outcome"])
	assert.Equal(t, "2", hash["goal_count"])
	assert.Equal(t, "2.250", hash["distance_remaining"])
	assert.Equal(t, "false", hash["cancel_requested"])
	assert.Equal(t, time.Hour, mem.ttls[rediskeys.MissionStatus("m-1")])

	current, _ := mem.HGetAll(context.Background(), rediskeys.CurrentMissionKey)
	assert.Equal(t, "m-1", current["mission_id"])
}

func TestRunWritesLatestSnapshot(t *testing.T) {
	mem := newMemoryCache()
	p := NewStatusPublisher(mem, quietLogger(), 0, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	p.MissionUpdated(mission.Status{MissionID: "m-2", State: mission.StateWaiting, GoalCount: 1})
	p.MissionUpdated(mission.Status{MissionID: "m-2", State: mission.StateFinished, Outcome: mission.OutcomeFinished, GoalCount: 1})

	require.Eventually(t, func() bool {
		hash, _ := mem.HGetAll(context.Background(), rediskeys.MissionStatus("m-2"))
		return hash["state"] == mission.StateFinished
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestProgressOnlyUpdatesAreThrottled(t *testing.T) {
	p := NewStatusPublisher(newMemoryCache(), quietLogger(), 0, time.Hour)
	base := mission.Status{MissionID: "m-3", State: mission.StateWaiting, GoalCount: 1}

	p.MissionUpdated(base)
	<-p.pending

	withProgress := base
	withProgress.Progress = &mission.Progress{X: 1}
	p.MissionUpdated(withProgress)
	<-p.pending

	withProgress.Progress = &mission.Progress{X: 2}
	p.MissionUpdated(withProgress)
	assert.Empty(t, p.pending)

	advanced := base
	advanced.GoalCount = 2
	p.MissionUpdated(advanced)
	assert.Len(t, p.pending, 1)
}

func TestRunFlushesOnShutdown(t *testing.T) {
	mem := newMemoryCache()
	p := NewStatusPublisher(mem, quietLogger(), 0, time.Hour)
	p.MissionUpdated(mission.Status{MissionID: "m-4", State: mission.StateCancelled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	hash, _ := mem.HGetAll(context.Background(), rediskeys.MissionStatus("m-4"))
	assert.Equal(t, mission.StateCancelled, hash["state"])
}

func TestOlderSnapshotIsDropped(t *testing.T) {
	p := NewStatusPublisher(newMemoryCache(), quietLogger(), 0, time.Hour)

	p.MissionUpdated(mission.Status{MissionID: "m-5", Version: 4, State: mission.StateCancelled})
	<-p.pending

	p.MissionUpdated(mission.Status{MissionID: "m-5", Version: 3, State: mission.StateWaiting, CancelRequested: true})
	assert.Empty(t, p.pending)

	// 다른 미션의 버전은 독립적이다
	p.MissionUpdated(mission.Status{MissionID: "m-6", Version: 1, State: mission.StateWaiting})
	assert.Len(t, p.pending, 1)
}

// gateSink holds back the first cancel-requested snapshot until released,
// letting the result snapshot overtake it.
type gateSink struct {
	next    mission.StatusSink
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (g *gateSink) MissionUpdated(s mission.Status) {
	if s.CancelRequested && s.State == mission.StateWaiting {
		g.once.Do(func() {
			close(g.held)
			<-g.release
		})
	}
	g.next.MissionUpdated(s)
}

func TestCancelSnapshotOvertakenByResult(t *testing.T) {
	mem := newMemoryCache()
	p := NewStatusPublisher(mem, quietLogger(), 0, time.Hour)
	sink := &gateSink{next: p, held: make(chan struct{}), release: make(chan struct{})}

	store, err := goals.NewStore("map", models.NewPoseFromYaw(1, 0, 0, 0), models.NewPoseFromYaw(2, 0, 0, 0))
	require.NoError(t, err)
	server := navtest.NewServer()
	ctrl := mission.NewController(server, store, mission.Options{MissionID: "m-7", Status: sink, Logger: quietLogger()})
	require.NoError(t, ctrl.SendGoalsToMoveBase(context.Background()))

	cancelled := make(chan error, 1)
	go func() { cancelled <- ctrl.Cancel() }()
	<-sink.held

	require.True(t, server.Finish(navigation.StatePreempted))
	close(sink.release)
	require.NoError(t, <-cancelled)
	assert.Equal(t, mission.StateCancelled, ctrl.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	hash, err := p.Read(context.Background(), "m-7")
	require.NoError(t, err)
	assert.Equal(t, mission.StateCancelled, hash["state"])
	assert.Equal(t, "true", hash["cancel_requested"])
}
