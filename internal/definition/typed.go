package definition

import (
	"errors"
	"fmt"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/0xPuncker/jobspec-watcher/pkg/value"
)

var (
	// ErrUnsupportedJobType is returned for typed jobs with no exporter.
	ErrUnsupportedJobType = errors.New("unsupported job type")

	// ErrMissingVariantSpec is returned when a typed job lacks the spec object
	// its type calls for.
	ErrMissingVariantSpec = errors.New("job is missing its type-specific spec")
)

// variantExtractor builds the flat field set of one typed job variant.
type variantExtractor interface {
	Type() types.JobType
	Extract(job types.Job) (*value.Mapping, error)
}

var extractors = map[types.JobType]variantExtractor{}

func register(e variantExtractor) {
	extractors[e.Type()] = e
}

func init() {
	register(fluxMonitorExtractor{})
	register(offChainReportingExtractor{})
}

// SupportedJobTypes lists the typed job types that can be exported.
func SupportedJobTypes() []types.JobType {
	return []types.JobType{types.JobTypeFluxMonitor, types.JobTypeOffChainReporting}
}

// Typed builds the flat field set of a typed job. Unknown types yield
// ErrUnsupportedJobType rather than an empty definition.
func Typed(job types.Job) (*value.Mapping, error) {
	extractor, ok := extractors[job.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJobType, job.Type)
	}
	return extractor.Extract(job)
}

type fluxMonitorExtractor struct{}

func (fluxMonitorExtractor) Type() types.JobType {
	return types.JobTypeFluxMonitor
}

func (fluxMonitorExtractor) Extract(job types.Job) (*value.Mapping, error) {
	spec := job.FluxMonitorSpec
	if spec == nil {
		return nil, fmt.Errorf("%w: fluxMonitorSpec", ErrMissingVariantSpec)
	}

	out := value.NewMapping()
	out.Set("type", value.String(job.Type))
	out.Set("schemaVersion", value.Uint(uint64(job.SchemaVersion)))
	out.Set("name", optionalString(job.Name))
	out.Set("contractAddress", value.String(spec.ContractAddress))
	out.Set("precision", value.Int(int64(spec.Precision)))
	out.Set("threshold", value.Float(spec.Threshold))
	out.Set("absoluteThreshold", value.Float(spec.AbsoluteThreshold))
	out.Set("idleTimerPeriod", value.String(spec.IdleTimerPeriod))
	out.Set("idleTimerDisabled", value.Bool(spec.IdleTimerDisabled))
	out.Set("pollTimerPeriod", value.String(spec.PollTimerPeriod))
	out.Set("pollTimerDisabled", value.Bool(spec.PollTimerDisabled))
	out.Set("maxTaskDuration", optionalString(job.MaxTaskDuration))
	out.Set("minPayment", optionalString(spec.MinPayment))
	out.Set("observationSource", optionalString(job.PipelineSpec.DotDagSource))
	return out, nil
}

type offChainReportingExtractor struct{}

func (offChainReportingExtractor) Type() types.JobType {
	return types.JobTypeOffChainReporting
}

func (offChainReportingExtractor) Extract(job types.Job) (*value.Mapping, error) {
	spec := job.OffChainReportingOracleSpec
	if spec == nil {
		return nil, fmt.Errorf("%w: offChainReportingOracleSpec", ErrMissingVariantSpec)
	}

	out := value.NewMapping()
	out.Set("type", value.String(job.Type))
	out.Set("schemaVersion", value.Uint(uint64(job.SchemaVersion)))
	out.Merge(spec.Without("createdAt", "updatedAt"))
	out.Set("observationSource", optionalString(job.PipelineSpec.DotDagSource))
	out.Set("maxTaskDuration", optionalString(job.MaxTaskDuration))
	return out, nil
}

// optionalString maps "" to Null so the key is left out of TOML output.
func optionalString(s string) value.Value {
	if s == "" {
		return value.Null{}
	}
	return value.String(s)
}
