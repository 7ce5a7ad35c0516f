package poller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/internal/notifications"
	"github.com/0xPuncker/jobspec-watcher/internal/testutil"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []notifications.DefinitionChange
	err     error
}

func (n *recordingNotifier) SendDefinitionChange(change notifications.DefinitionChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changes)
}

func newTestPoller(source types.JobSource, notifier Notifier, list *types.WatchList) *Poller {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(source, definition.NewGenerator(nil, logger), notifier, list, logger, time.Minute, time.Second)
}

func TestPollerConfiguration(t *testing.T) {
	testCases := []struct {
		name            string
		interval        time.Duration
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"Default interval", 5 * time.Minute, 0, 30 * time.Second},
		{"Short interval", 1 * time.Minute, 10 * time.Second, 10 * time.Second},
		{"Long interval", 1 * time.Hour, -time.Second, 30 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger := logrus.New()
			p := New(testutil.NewStaticSource(), definition.NewGenerator(nil, logger), nil, nil, logger, tc.interval, tc.timeout)

			assert.NotNil(t, p)
			assert.Equal(t, tc.interval, p.interval)
			assert.Equal(t, tc.expectedTimeout, p.timeout)
			assert.NotNil(t, p.watchList)
		})
	}
}

func TestPollerDetectsChanges(t *testing.T) {
	source := testutil.NewStaticSource()
	source.PutJob(testutil.FluxMonitorJob("1", "eth-usd", types.FluxMonitorSpec{Threshold: 0.5}))
	source.PutSpec(testutil.LegacyJobSpec("abc"))

	notifier := &recordingNotifier{}
	p := newTestPoller(source, notifier, &types.WatchList{
		Legacy: []types.WatchedJob{{ID: "abc"}},
		Typed:  []types.WatchedJob{{ID: "1"}},
	})

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.Empty(t, p.Poll(ctx), "first poll only records a baseline")
	assert.Equal(t, 0, notifier.count())

	clock = start.Add(time.Hour)
	assert.Empty(t, p.Poll(ctx), "unchanged definitions are not reported")

	source.PutJob(testutil.FluxMonitorJob("1", "eth-usd", types.FluxMonitorSpec{Threshold: 0.7}))
	clock = start.Add(3 * time.Hour)

	changes := p.Poll(ctx)
	require.Len(t, changes, 1)
	change := changes[0]
	assert.Equal(t, types.KindTyped, change.Kind)
	assert.Equal(t, "1", change.JobID)
	assert.Equal(t, types.JobTypeFluxMonitor, change.JobType)
	assert.Equal(t, "toml", change.Format)
	assert.Equal(t, 3*time.Hour, change.StableFor)
	assert.Contains(t, change.Previous, "0.5")
	assert.Contains(t, change.Current, "0.7")
	assert.Equal(t, 1, notifier.count())

	clock = start.Add(4 * time.Hour)
	assert.Empty(t, p.Poll(ctx), "the new text becomes the baseline")
}

func TestPollerSkipsFailures(t *testing.T) {
	source := testutil.NewStaticSource()
	source.PutJob(types.Job{ID: "2", Type: "webhook"})

	notifier := &recordingNotifier{err: errors.New("slack down")}
	p := newTestPoller(source, notifier, &types.WatchList{
		Typed: []types.WatchedJob{{ID: "2"}, {ID: "missing"}},
	})

	assert.Empty(t, p.Poll(context.Background()))
	assert.Empty(t, p.Poll(context.Background()))
	assert.Empty(t, p.seen)
}

func TestPollerNotifierErrorDoesNotStopCycle(t *testing.T) {
	source := testutil.NewStaticSource()
	source.PutJob(testutil.OCRJob("1", "a"))
	source.PutJob(testutil.OCRJob("2", "b"))

	notifier := &recordingNotifier{err: errors.New("slack down")}
	p := newTestPoller(source, notifier, &types.WatchList{
		Typed: []types.WatchedJob{{ID: "1"}, {ID: "2"}},
	})
	ctx := context.Background()
	p.Poll(ctx)

	job1 := testutil.OCRJob("1", "a")
	job1.MaxTaskDuration = "20s"
	job2 := testutil.OCRJob("2", "b")
	job2.MaxTaskDuration = "30s"
	source.PutJob(job1)
	source.PutJob(job2)

	assert.Len(t, p.Poll(ctx), 2)
	assert.Equal(t, 2, notifier.count())
}

func TestPollerStartStop(t *testing.T) {
	source := testutil.NewStaticSource()
	source.PutSpec(testutil.LegacyJobSpec("abc"))

	p := newTestPoller(source, nil, &types.WatchList{Legacy: []types.WatchedJob{{ID: "abc"}}})
	p.interval = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.seen) == 1
	}, time.Second, 10*time.Millisecond)

	p.Stop()
	p.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	p := newTestPoller(testutil.NewStaticSource(), nil, nil)
	p.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}
