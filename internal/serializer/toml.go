package serializer

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/0xPuncker/jobspec-watcher/pkg/value"
	"github.com/pelletier/go-toml/v2"
)

// encodeTOML writes the top-level keys of m in insertion order. TOML has no
// null, so Null entries are left out. Tables and arrays of tables go after
// every plain key: a key written after a [table] header would belong to it.
func encodeTOML(v value.Value) (string, error) {
	m, ok := v.(*value.Mapping)
	if !ok {
		return "", fmt.Errorf("TOML definition must be a mapping, got %T", v)
	}

	var plain, tables bytes.Buffer
	for _, key := range m.Keys() {
		item, _ := m.Get(key)
		if value.IsNull(item) {
			continue
		}

		converted, err := tomlValue(item)
		if err != nil {
			return "", fmt.Errorf("failed to encode TOML key %q: %w", key, err)
		}

		out, err := toml.Marshal(map[string]any{key: converted})
		if err != nil {
			return "", fmt.Errorf("failed to encode TOML key %q: %w", key, err)
		}

		if isTable(item) {
			if tables.Len() > 0 || plain.Len() > 0 {
				tables.WriteByte('\n')
			}
			tables.Write(out)
			continue
		}
		plain.Write(out)
	}

	plain.Write(tables.Bytes())
	return string(plain.Bytes()), nil
}

func isTable(v value.Value) bool {
	switch x := v.(type) {
	case *value.Mapping:
		return true
	case value.Sequence:
		if len(x) == 0 {
			return false
		}
		for _, item := range x {
			if _, ok := item.(*value.Mapping); !ok {
				return false
			}
		}
		return true
	}
	return false
}

// ErrUnrepresentableNumber is returned for numbers TOML cannot carry
// without changing their value.
var ErrUnrepresentableNumber = errors.New("number cannot be represented exactly in TOML")

// tomlValue converts v for the TOML encoder, dropping nulls at every depth.
func tomlValue(v value.Value) (any, error) {
	switch x := v.(type) {
	case *value.Mapping:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			if value.IsNull(item) {
				continue
			}
			converted, err := tomlValue(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = converted
		}
		return out, nil
	case value.Sequence:
		out := make([]any, 0, len(x))
		for i, item := range x {
			if value.IsNull(item) {
				continue
			}
			converted, err := tomlValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, converted)
		}
		return out, nil
	case value.Number:
		return tomlNumber(x)
	default:
		return value.ToAny(v), nil
	}
}

// tomlNumber returns n as int64 when it is an integer in range, or as
// float64 when that float has exactly the decimal value of n.
func tomlNumber(n value.Number) (any, error) {
	text := string(n)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}

	exact, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	if exact.IsInt() && !strings.ContainsAny(text, ".eE") {
		return nil, fmt.Errorf("%w: %s overflows a 64-bit integer", ErrUnrepresentableNumber, text)
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnrepresentableNumber, text)
	}
	back, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok || back.Cmp(exact) != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnrepresentableNumber, text)
	}
	return f, nil
}
