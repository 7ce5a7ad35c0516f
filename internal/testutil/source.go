package testutil

import (
	"context"
	"sync"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
)

// StaticSource is an in-memory JobSource. Records can be replaced while it is
// in use.
type StaticSource struct {
	mu    sync.RWMutex
	specs map[string]types.JobSpec
	jobs  map[string]types.Job
	err   error
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		specs: make(map[string]types.JobSpec),
		jobs:  make(map[string]types.Job),
	}
}

func (s *StaticSource) PutSpec(spec types.JobSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs[spec.ID] = spec
}

func (s *StaticSource) PutJob(job types.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// FailWith makes every subsequent read return err. A nil err restores
// normal behaviour.
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticSource) GetJobSpec(_ context.Context, id string, _ bool) (*types.JobSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	spec, ok := s.specs[id]
	if !ok {
		return nil, types.ErrJobNotFound
	}
	return &spec, nil
}

func (s *StaticSource) GetJob(_ context.Context, id string, _ bool) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	job, ok := s.jobs[id]
	if !ok {
		return nil, types.ErrJobNotFound
	}
	return &job, nil
}
