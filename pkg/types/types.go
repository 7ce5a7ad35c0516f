package types

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned by a JobSource when the node has no record with
// the requested ID.
var ErrJobNotFound = errors.New("job not found")

// JobSource fetches job records from a node.
type JobSource interface {
	GetJobSpec(ctx context.Context, id string, forceRefresh bool) (*JobSpec, error)
	GetJob(ctx context.Context, id string, forceRefresh bool) (*Job, error)
}

// WatchedJob is a job whose definition is exported and watched for drift
type WatchedJob struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// WatchList represents the jobs.yaml configuration, split by record kind
type WatchList struct {
	Legacy []WatchedJob `yaml:"legacy"`
	Typed  []WatchedJob `yaml:"typed"`
}

// Len returns the number of watched jobs of both kinds.
func (w *WatchList) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Legacy) + len(w.Typed)
}
