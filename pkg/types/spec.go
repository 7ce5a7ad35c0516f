package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/0xPuncker/jobspec-watcher/pkg/value"
)

// JobKind tells legacy specs and typed jobs apart.
type JobKind string

const (
	KindLegacy JobKind = "legacy"
	KindTyped  JobKind = "typed"
)

// JobType is the discriminator of a typed job.
type JobType string

const (
	JobTypeFluxMonitor       JobType = "fluxmonitor"
	JobTypeOffChainReporting JobType = "offchainreporting"
)

// JobSpec is a legacy, untyped job specification.
//
// Attributes holds the record as the node returned it, including the
// bookkeeping fields (ID, CreatedAt, UpdatedAt, DeletedAt). ID is the node's
// identifier for the spec and is never exported.
type JobSpec struct {
	ID         string
	Attributes *value.Mapping
}

// Job is a typed job record. Type selects which variant spec is populated.
type Job struct {
	ID              string       `json:"-"`
	Type            JobType      `json:"type"`
	Name            string       `json:"name"`
	SchemaVersion   uint32       `json:"schemaVersion"`
	MaxTaskDuration string       `json:"maxTaskDuration"`
	PipelineSpec    PipelineSpec `json:"pipelineSpec"`

	FluxMonitorSpec             *FluxMonitorSpec `json:"fluxMonitorSpec,omitempty"`
	OffChainReportingOracleSpec *value.Mapping   `json:"offChainReportingOracleSpec,omitempty"`
}

// PipelineSpec carries the observation source program of a typed job.
type PipelineSpec struct {
	ID           int32     `json:"id"`
	DotDagSource string    `json:"dotDagSource"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FluxMonitorSpec is the variant spec of a fluxmonitor job.
type FluxMonitorSpec struct {
	ContractAddress   string    `json:"contractAddress"`
	Precision         int32     `json:"precision"`
	Threshold         float64   `json:"threshold"`
	AbsoluteThreshold float64   `json:"absoluteThreshold"`
	IdleTimerPeriod   string    `json:"idleTimerPeriod"`
	IdleTimerDisabled bool      `json:"idleTimerDisabled"`
	PollTimerPeriod   string    `json:"pollTimerPeriod"`
	PollTimerDisabled bool      `json:"pollTimerDisabled"`
	MinPayment        string    `json:"minPayment"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Resource is a JSON:API resource object.
type Resource[T any] struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes T      `json:"attributes"`
}

// Document is a JSON:API document holding a single resource.
type Document[T any] struct {
	Data Resource[T] `json:"data"`
}

// DecodeJobSpec decodes a JSON:API document holding a legacy job spec.
func DecodeJobSpec(data []byte) (*JobSpec, error) {
	var doc Document[*value.Mapping]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode job spec document: %w", err)
	}
	if doc.Data.Attributes == nil {
		return nil, fmt.Errorf("failed to decode job spec document: missing attributes")
	}

	return &JobSpec{
		ID:         doc.Data.ID,
		Attributes: doc.Data.Attributes,
	}, nil
}

// DecodeJob decodes a JSON:API document holding a typed job.
func DecodeJob(data []byte) (*Job, error) {
	var doc Document[Job]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode job document: %w", err)
	}

	job := doc.Data.Attributes
	job.ID = doc.Data.ID
	return &job, nil
}
