// Package definition turns job records into portable job definitions: JSON
// for legacy specs, TOML for typed jobs.
package definition

import (
	"context"
	"fmt"

	"github.com/0xPuncker/jobspec-watcher/internal/serializer"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/sirupsen/logrus"
)

// Definition is the exported text of one job.
type Definition struct {
	Kind   types.JobKind
	JobID  string
	Type   types.JobType // empty for legacy specs
	Format serializer.Format
	Text   string
}

// FileName is the name the definition is exported under.
func (d *Definition) FileName() string {
	return fmt.Sprintf("%s-%s%s", d.Kind, d.JobID, d.Format.Extension())
}

type Generator struct {
	serializer serializer.Serializer
	logger     *logrus.Logger
}

func NewGenerator(s serializer.Serializer, logger *logrus.Logger) *Generator {
	if s == nil {
		s = serializer.New()
	}
	return &Generator{
		serializer: s,
		logger:     logger,
	}
}

// JSONDefinition renders a legacy spec as JSON.
func (g *Generator) JSONDefinition(spec types.JobSpec) (*Definition, error) {
	fields := Legacy(spec)

	text, err := g.serializer.Serialize(fields, serializer.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job spec %s: %w", spec.ID, err)
	}

	g.logger.WithFields(logrus.Fields{
		"job_id": spec.ID,
		"kind":   types.KindLegacy,
		"fields": fields.Keys(),
	}).Debug("Generated JSON definition")

	return &Definition{
		Kind:   types.KindLegacy,
		JobID:  spec.ID,
		Format: serializer.FormatJSON,
		Text:   text,
	}, nil
}

// TOMLDefinition renders a typed job as TOML.
func (g *Generator) TOMLDefinition(job types.Job) (*Definition, error) {
	fields, err := Typed(job)
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"job_id": job.ID,
			"type":   job.Type,
		}).WithError(err).Debug("Cannot generate TOML definition")
		return nil, err
	}

	text, err := g.serializer.Serialize(fields, serializer.FormatTOML)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job %s: %w", job.ID, err)
	}

	g.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"kind":   types.KindTyped,
		"type":   job.Type,
	}).Debug("Generated TOML definition")

	return &Definition{
		Kind:   types.KindTyped,
		JobID:  job.ID,
		Type:   job.Type,
		Format: serializer.FormatTOML,
		Text:   text,
	}, nil
}

// Fetch reads the record of the given kind from source and renders it.
func (g *Generator) Fetch(ctx context.Context, source types.JobSource, kind types.JobKind, id string, forceRefresh bool) (*Definition, error) {
	switch kind {
	case types.KindLegacy:
		spec, err := source.GetJobSpec(ctx, id, forceRefresh)
		if err != nil {
			return nil, err
		}
		return g.JSONDefinition(*spec)
	case types.KindTyped:
		job, err := source.GetJob(ctx, id, forceRefresh)
		if err != nil {
			return nil, err
		}
		return g.TOMLDefinition(*job)
	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
}
