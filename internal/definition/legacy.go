package definition

import (
	"strings"

	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/0xPuncker/jobspec-watcher/pkg/value"
)

// legacyFields are the attributes of a legacy spec that survive export, in
// output order.
var legacyFields = []string{"name", "initiators", "tasks", "startAt", "endAt"}

// bookkeepingKeys are the database columns the node leaks into every nested
// object of a legacy spec.
var bookkeepingKeys = []string{"ID", "CreatedAt", "DeletedAt", "UpdatedAt"}

// Legacy selects the exportable attributes of a legacy spec and scrubs them.
// A name that embeds the spec ID was generated by the node and is dropped so
// that a duplicated spec gets a fresh one.
func Legacy(spec types.JobSpec) *value.Mapping {
	out := value.NewMapping()
	for _, field := range legacyFields {
		raw, ok := spec.Attributes.Get(field)
		if !ok {
			continue
		}

		cleaned := Scrub(raw, bookkeepingKeys...)
		if value.IsNull(cleaned) {
			continue
		}
		out.Set(field, cleaned)
	}

	if isGeneratedName(out, spec.ID) {
		out.Delete("name")
	}

	return out
}

func isGeneratedName(m *value.Mapping, id string) bool {
	if id == "" {
		return false
	}
	name, ok := m.Get("name")
	if !ok {
		return false
	}
	s, ok := name.(value.String)
	return ok && strings.Contains(string(s), id)
}
