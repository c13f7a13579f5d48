package gopager

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"time"
)

// RawRow is one row of a raw query result keyed by column alias.
type RawRow = map[string]any

// Merged is an entity together with the server-computed columns of its raw
// rows. It encodes to JSON as the entity's object with Extras overlaid.
type Merged[T any] struct {
	Entity T
	Extras map[string]any
}

func (m Merged[T]) MarshalJSON() ([]byte, error) {
	entity, err := json.Marshal(m.Entity)
	if err != nil {
		return nil, err
	}

	if len(m.Extras) == 0 {
		return entity, nil
	}

	obj := make(map[string]json.RawMessage)
	if err = json.Unmarshal(entity, &obj); err != nil {
		return nil, fmt.Errorf("cannot overlay extras on %T: %w", m.Entity, err)
	}

	for k, v := range m.Extras {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		obj[k] = raw
	}

	return json.Marshal(obj)
}

var (
	_integerText = regexp.MustCompile(`^-?\d+$`)
	_decimalText = regexp.MustCompile(`^-?\d+\.\d+$`)
)

// CoerceExtra normalizes a raw column value for output. Numeric text becomes
// int64 or float64, other text is kept, numbers stay numbers, times become ISO
// text and everything else becomes nil.
func CoerceExtra(v any) any {
	switch vt := v.(type) {
	case string:
		return coerceText(vt)
	case []byte:
		return coerceText(string(vt))
	case int:
		return int64(vt)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return vt
	case time.Time:
		return vt.UTC().Format(ISOTimeLayout)
	default:
		return nil
	}
}

func coerceText(s string) any {
	switch {
	case _integerText.MatchString(s):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case _decimalText.MatchString(s):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}

// MergeRaw attaches the mergeKeys columns of raw rows to the entities they
// belong to. Rows and entities are correlated by the canonical form of their
// primary key: raw rows expose it as key.RawColumn(alias), entities as
// key.Field. Raw rows with a NULL key are skipped, and when several rows share
// a key the last one wins. Entities without raw rows get empty extras.
//
// MergeRaw depends only on its arguments.
func MergeRaw[T any](entities []T, raw []RawRow, alias string, key KeyDescriptor, mergeKeys []string) ([]Merged[T], error) {
	rawKey := key.RawColumn(alias)
	extrasByKey := make(map[string]map[string]any, len(raw))

	for _, row := range raw {
		k, err := key.Encode(row[rawKey])
		if err != nil {
			return nil, fmt.Errorf("cannot read key of raw row: %w", err)
		}

		if k == "" {
			continue
		}

		extras, ok := extrasByKey[k]
		if !ok {
			extras = make(map[string]any, len(mergeKeys))
			extrasByKey[k] = extras
		}

		for _, mk := range mergeKeys {
			extras[mk] = CoerceExtra(row[mk])
		}
	}

	ret := make([]Merged[T], 0, len(entities))
	for i := range entities {
		k, err := key.EntityKey(&entities[i])
		if err != nil {
			return nil, fmt.Errorf("cannot read key of entity: %w", err)
		}

		extras := maps.Clone(extrasByKey[k])
		if extras == nil {
			extras = make(map[string]any)
		}

		ret = append(ret, Merged[T]{Entity: entities[i], Extras: extras})
	}

	return ret, nil
}
