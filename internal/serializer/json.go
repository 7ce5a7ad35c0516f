package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/0xPuncker/jobspec-watcher/pkg/value"
)

// encodeJSON writes v with two-space indentation and without HTML escaping,
// so observation sources keep their '<' and '>' readable.
func encodeJSON(v value.Value) (string, error) {
	if v == nil {
		v = value.Null{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode JSON definition: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
