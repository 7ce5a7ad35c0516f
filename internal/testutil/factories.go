package testutil

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/0xPuncker/jobspec-watcher/pkg/value"
)

const DotDagSource = `ds1 [type=http method=GET url="https://example.com/eth-usd"];
ds1_parse [type=jsonparse path="data,result"];
ds1_multiply [type=multiply times=100];
ds1 -> ds1_parse -> ds1_multiply;`

var createdAt = time.Date(2021, 2, 19, 16, 0, 1, 0, time.UTC)

// LegacySpecAttributes is a legacy job spec the way the node returns it,
// bookkeeping columns included.
const LegacySpecAttributes = `{
  "id": "{{id}}",
  "name": "Job{{id}}",
  "createdAt": "2021-02-19T16:00:01.115227Z",
  "initiators": [
    {
      "ID": 1,
      "JobSpecID": "{{id}}",
      "type": "web",
      "params": {},
      "CreatedAt": "2021-02-19T16:00:01.115227Z",
      "UpdatedAt": "2021-02-19T16:00:01.115227Z",
      "DeletedAt": null
    }
  ],
  "tasks": [
    {
      "ID": 1,
      "JobSpecID": "{{id}}",
      "type": "httpget",
      "confirmations": null,
      "params": {
        "get": "https://bitstamp.net/api/ticker/"
      },
      "CreatedAt": "2021-02-19T16:00:01.115227Z",
      "UpdatedAt": "2021-02-19T16:00:01.115227Z",
      "DeletedAt": null
    },
    {
      "ID": 2,
      "JobSpecID": "{{id}}",
      "type": "jsonparse",
      "confirmations": 0,
      "params": {
        "path": ["last"]
      },
      "CreatedAt": "2021-02-19T16:00:01.115227Z",
      "UpdatedAt": "2021-02-19T16:00:01.115227Z",
      "DeletedAt": null
    }
  ],
  "startAt": null,
  "endAt": null,
  "minPayment": "1000000000000000000"
}`

// LegacyJobSpec returns a legacy spec with the given ID and a node-generated
// name ("Job" + id).
func LegacyJobSpec(id string) types.JobSpec {
	raw := []byte(strings.ReplaceAll(LegacySpecAttributes, "{{id}}", id))
	attrs, err := value.Parse(raw)
	if err != nil {
		panic(err)
	}
	return types.JobSpec{ID: id, Attributes: attrs.(*value.Mapping)}
}

// FluxMonitorJob returns a fluxmonitor job, filling unset spec fields with
// defaults.
func FluxMonitorJob(id, name string, spec types.FluxMonitorSpec) types.Job {
	if spec.ContractAddress == "" {
		spec.ContractAddress = "0x3cCad4715152693fE3BC4460591e3D3Fbd071b42"
	}
	if spec.Precision == 0 {
		spec.Precision = 2
	}
	if spec.Threshold == 0 {
		spec.Threshold = 0.5
	}
	if spec.IdleTimerPeriod == "" {
		spec.IdleTimerPeriod = "1s"
	}
	if spec.PollTimerPeriod == "" {
		spec.PollTimerPeriod = "1m0s"
	}
	if spec.MinPayment == "" {
		spec.MinPayment = "100"
	}
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = createdAt
	}

	return types.Job{
		ID:              id,
		Type:            types.JobTypeFluxMonitor,
		Name:            name,
		SchemaVersion:   1,
		MaxTaskDuration: "1m",
		PipelineSpec: types.PipelineSpec{
			ID:           1,
			DotDagSource: DotDagSource,
			CreatedAt:    createdAt,
		},
		FluxMonitorSpec: &spec,
	}
}

// OCRJob returns an offchainreporting job whose spec carries the node's
// createdAt/updatedAt timestamps.
func OCRJob(id, name string) types.Job {
	spec := value.NewMapping()
	spec.Set("contractAddress", value.String("0x1469877c88F19E273EFC7Ef3C9D944574583B8a0"))
	spec.Set("p2pPeerID", value.String("12D3KooWL4zx7Tu92wNuK14LT2BV4mXxNoNK3zuxE7iKNgiazJFm"))
	spec.Set("p2pBootstrapPeers", value.Sequence{
		value.String("/ip4/139.59.41.32/tcp/12000/p2p/12D3KooWGKhStcrvCr5RBYKaSRNX4ojrxHcmpJuFmHWenT6aAQAY"),
	})
	spec.Set("isBootstrapPeer", value.Bool(false))
	spec.Set("keyBundleID", value.String("4ee612467cd39cff4cc0c3c4d4d5ad8a2d9f12b0e5cf3c9bba0b5e35f3e19d4e"))
	spec.Set("monitoringEndpoint", value.String("chain.link:4321"))
	spec.Set("transmitterAddress", value.String("0x01010CaB43e77C9a8CdC5E34b6e0a1f9b3B1F0a1"))
	spec.Set("observationTimeout", value.String("10s"))
	spec.Set("blockchainTimeout", value.String("20s"))
	spec.Set("contractConfigTrackerSubscribeInterval", value.String("2m"))
	spec.Set("contractConfigTrackerPollInterval", value.String("1m"))
	spec.Set("contractConfigConfirmations", value.Int(3))
	spec.Set("createdAt", value.String(createdAt.Format(time.RFC3339)))
	spec.Set("updatedAt", value.String(createdAt.Format(time.RFC3339)))

	return types.Job{
		ID:              id,
		Type:            types.JobTypeOffChainReporting,
		Name:            name,
		SchemaVersion:   1,
		MaxTaskDuration: "10s",
		PipelineSpec: types.PipelineSpec{
			ID:           2,
			DotDagSource: DotDagSource,
			CreatedAt:    createdAt,
		},
		OffChainReportingOracleSpec: spec,
	}
}

// JobDocument encodes job as the JSON:API document the node serves.
func JobDocument(job types.Job) []byte {
	return mustMarshal(types.Document[types.Job]{
		Data: types.Resource[types.Job]{
			Type:       "jobs",
			ID:         job.ID,
			Attributes: job,
		},
	})
}

// JobSpecDocument encodes spec as the JSON:API document the node serves.
func JobSpecDocument(spec types.JobSpec) []byte {
	return mustMarshal(types.Document[*value.Mapping]{
		Data: types.Resource[*value.Mapping]{
			Type:       "specs",
			ID:         spec.ID,
			Attributes: spec.Attributes,
		},
	})
}

func mustMarshal(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}
