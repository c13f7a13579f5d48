package gopager

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// KeyKind classifies a primary key value for canonicalization.
type KeyKind int

const (
	KeyKindUnsupported KeyKind = iota
	KeyKindNull
	KeyKindString
	KeyKindBytes
	KeyKindSigned
	KeyKindUnsigned
	KeyKindFloat
	KeyKindBigInt
	KeyKindTime
	KeyKindUUID
	KeyKindValuer
	KeyKindStringer
)

// ISOTimeLayout is the canonical text form of time keys: UTC with
// millisecond precision.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// KeyCodec turns a primary key value into its canonical string form.
// An empty string means the key is NULL and the row carries no identity.
type KeyCodec func(v any) (string, error)

// KeyDescriptor says how to find the primary key of an entity and of a raw
// row of the same query.
type KeyDescriptor struct {
	// Field is the Go field path of the key on the entity, e.g. "ID" or "Base.ID".
	Field string
	// Column is the database column of the key.
	Column string
	// Codec canonicalizes key values. CanonicalKey is used when nil.
	Codec KeyCodec
}

// RawColumn is the name under which raw rows of alias expose the key.
func (k KeyDescriptor) RawColumn(alias string) string {
	return alias + "_" + k.Column
}

// Encode canonicalizes a key value with the descriptor's codec.
func (k KeyDescriptor) Encode(v any) (string, error) {
	if k.Codec != nil {
		return k.Codec(v)
	}

	return CanonicalKey(v)
}

// EntityKey reads the key field of entity and canonicalizes it.
func (k KeyDescriptor) EntityKey(entity any) (string, error) {
	rv := reflect.ValueOf(entity)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", fmt.Errorf("%w: nil entity", ErrUnsupportedKeyType)
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("%w: entity of kind %s has no fields", ErrUnsupportedKeyType, rv.Kind())
	}

	for _, name := range strings.Split(k.Field, ".") {
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return "", nil
			}
			rv = rv.Elem()
		}

		rv = rv.FieldByName(name)
		if !rv.IsValid() {
			return "", fmt.Errorf("%w: no field '%s' on entity", ErrConfiguration, k.Field)
		}
	}

	return k.Encode(rv.Interface())
}

// KindOf classifies v. Pointers are looked through unless only the pointer
// type knows how to render itself.
func KindOf(v any) KeyKind {
	return kindOf(indirect(v))
}

func indirect(v any) any {
	for {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer {
			return v
		}

		if rv.IsNil() {
			return nil
		}

		elem := rv.Elem().Interface()
		if kindOf(elem) == KeyKindUnsupported && kindOf(v) != KeyKindUnsupported {
			return v
		}

		v = elem
	}
}

func kindOf(v any) KeyKind {
	switch v.(type) {
	case nil:
		return KeyKindNull
	case []byte:
		return KeyKindBytes
	case *big.Int:
		return KeyKindBigInt
	case time.Time:
		return KeyKindTime
	case uuid.UUID:
		return KeyKindUUID
	case driver.Valuer:
		return KeyKindValuer
	case fmt.Stringer:
		return KeyKindStringer
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.String:
		return KeyKindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KeyKindSigned
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KeyKindUnsigned
	case reflect.Float32, reflect.Float64:
		return KeyKindFloat
	default:
		return KeyKindUnsupported
	}
}

// CanonicalKey is the default KeyCodec.
//
// Strings are kept, numbers use their shortest decimal form, times are
// rendered with ISOTimeLayout in UTC, UUIDs in their hyphenated form. Valuers
// are canonicalized by the value they hand to the driver, other Stringers by
// String(). NULL keys and empty strings canonicalize to "".
func CanonicalKey(v any) (string, error) {
	v = indirect(v)

	switch kindOf(v) {
	case KeyKindNull:
		return "", nil
	case KeyKindString:
		return reflect.ValueOf(v).String(), nil
	case KeyKindBytes:
		return string(v.([]byte)), nil
	case KeyKindSigned:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), nil
	case KeyKindUnsigned:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), nil
	case KeyKindFloat:
		rv := reflect.ValueOf(v)
		return strconv.FormatFloat(rv.Float(), 'f', -1, lo.Ternary(rv.Kind() == reflect.Float32, 32, 64)), nil
	case KeyKindBigInt:
		return v.(*big.Int).String(), nil
	case KeyKindTime:
		return v.(time.Time).UTC().Format(ISOTimeLayout), nil
	case KeyKindUUID:
		return v.(uuid.UUID).String(), nil
	case KeyKindValuer:
		dv, err := v.(driver.Valuer).Value()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnsupportedKeyType, err)
		}

		if _, loops := dv.(driver.Valuer); loops {
			return "", fmt.Errorf("%w: %T", ErrUnsupportedKeyType, v)
		}

		return CanonicalKey(dv)
	case KeyKindStringer:
		return v.(fmt.Stringer).String(), nil
	}

	return "", fmt.Errorf("%w: %T", ErrUnsupportedKeyType, v)
}
