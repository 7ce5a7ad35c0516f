package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/internal/notifications"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/sirupsen/logrus"
)

// Notifier receives definition changes found by the poller.
type Notifier interface {
	SendDefinitionChange(change notifications.DefinitionChange) error
}

type observation struct {
	text  string
	since time.Time
}

// Poller regenerates the definitions of watched jobs on an interval and
// reports any whose text changed since the previous poll.
type Poller struct {
	source    types.JobSource
	generator *definition.Generator
	notifier  Notifier
	watchList *types.WatchList
	logger    *logrus.Logger
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time

	mu   sync.Mutex
	seen map[string]observation

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns a poller. notifier may be nil, in which case changes are only
// logged. timeout bounds each fetch; zero selects 30s.
func New(
	source types.JobSource,
	generator *definition.Generator,
	notifier Notifier,
	watchList *types.WatchList,
	logger *logrus.Logger,
	interval time.Duration,
	timeout time.Duration,
) *Poller {
	if watchList == nil {
		watchList = &types.WatchList{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		source:    source,
		generator: generator,
		notifier:  notifier,
		watchList: watchList,
		logger:    logger,
		interval:  interval,
		timeout:   timeout,
		now:       time.Now,
		seen:      make(map[string]observation),
		stop:      make(chan struct{}),
	}
}

// Start polls once, then on every tick until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)

	for {
		select {
		case <-ticker.C:
			p.Poll(ctx)
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// Poll runs one cycle and returns the changes it found. The first
// observation of a job only records a baseline.
func (p *Poller) Poll(ctx context.Context) []notifications.DefinitionChange {
	p.logger.Debug("Starting poller update cycle")

	var changes []notifications.DefinitionChange
	check := func(kind types.JobKind, jobs []types.WatchedJob) {
		for _, w := range jobs {
			change, err := p.check(ctx, kind, w.ID)
			if err != nil {
				if errors.Is(err, definition.ErrUnsupportedJobType) {
					p.logger.Debugf("Skipping %s job %s: %v", kind, w.ID, err)
					continue
				}
				p.logger.Errorf("Failed to check %s job %s: %v", kind, w.ID, err)
				continue
			}
			if change != nil {
				changes = append(changes, *change)
			}
		}
	}

	check(types.KindLegacy, p.watchList.Legacy)
	check(types.KindTyped, p.watchList.Typed)

	for _, change := range changes {
		p.logger.WithFields(logrus.Fields{
			"kind":       change.Kind,
			"job_id":     change.JobID,
			"stable_for": change.StableFor.String(),
		}).Info("Job definition changed")

		if p.notifier == nil {
			continue
		}
		if err := p.notifier.SendDefinitionChange(change); err != nil {
			p.logger.WithError(err).Error("Failed to send definition change notification")
		}
	}

	p.logger.Debugf("Completed poller update cycle: %d changes", len(changes))
	return changes
}

func (p *Poller) check(ctx context.Context, kind types.JobKind, id string) (*notifications.DefinitionChange, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	def, err := p.generator.Fetch(ctx, p.source, kind, id, true)
	if err != nil {
		return nil, err
	}

	now := p.now()
	key := fmt.Sprintf("%s/%s", kind, id)

	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.seen[key]
	if !ok {
		p.seen[key] = observation{text: def.Text, since: now}
		p.logger.Debugf("Recorded baseline definition for %s", key)
		return nil, nil
	}
	if prev.text == def.Text {
		return nil, nil
	}

	p.seen[key] = observation{text: def.Text, since: now}
	return &notifications.DefinitionChange{
		Kind:       kind,
		JobID:      id,
		JobType:    def.Type,
		Format:     string(def.Format),
		Previous:   prev.text,
		Current:    def.Text,
		StableFor:  now.Sub(prev.since),
		DetectedAt: now,
	}, nil
}
