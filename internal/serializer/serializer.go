package serializer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/0xPuncker/jobspec-watcher/pkg/value"
)

// Format selects the text encoding of a job definition.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

var ErrUnknownFormat = errors.New("unknown definition format")

// ParseFormat accepts "json" or "toml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatTOML:
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	if f == FormatTOML {
		return "application/toml"
	}
	return "application/json"
}

// Serializer turns a sanitized value tree into definition text.
type Serializer interface {
	Serialize(v value.Value, format Format) (string, error)
}

// Stringifier is the default Serializer.
type Stringifier struct{}

func New() *Stringifier {
	return &Stringifier{}
}

func (s *Stringifier) Serialize(v value.Value, format Format) (string, error) {
	return Stringify(v, format)
}

// Stringify encodes v in the given format.
func Stringify(v value.Value, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(v)
	case FormatTOML:
		return encodeTOML(v)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
