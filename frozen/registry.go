package frozen

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// TypeTag is a stable identifier naming the native type used to cast a decoded value back.
type TypeTag = string

const (
	TagInt        TypeTag = "int"
	TagFloat      TypeTag = "float"
	TagText       TypeTag = "text"
	TagBool       TypeTag = "bool"
	TagDecimal    TypeTag = "decimal"
	TagDate       TypeTag = "date"
	TagDateTime   TypeTag = "datetime"
	TagUUID       TypeTag = "uuid"
	TagJSON       TypeTag = "json"
	TagForeignKey TypeTag = "foreign_key"
	TagOneToOne   TypeTag = "one_to_one"
	TagFrozen     TypeTag = "frozen"
)

var (
	errNotIntegral      = errors.New("number is not integral")
	errUnsupportedInput = errors.New("unsupported input type")
)

// Caster converts a raw (decoded) value back into its native type.
type Caster func(raw any) (any, error)

// TypeRegistry is a closed mapping from TypeTag to Caster.
//
// It is immutable: With returns an extended copy, so a registry can be built once at startup
// and shared between goroutines.
type TypeRegistry struct {
	casters map[TypeTag]Caster
}

var defaultTypeRegistry = TypeRegistry{
	casters: map[TypeTag]Caster{
		TagInt:      castInt,
		TagFloat:    castFloat,
		TagText:     castText,
		TagBool:     castBool,
		TagDecimal:  castDecimal,
		TagDate:     castDate,
		TagDateTime: castDateTime,
		TagUUID:     castUUID,
		TagJSON:     castJSON,
	},
}

// DefaultTypeRegistry returns the registry with casters for all built-in scalar tags.
func DefaultTypeRegistry() TypeRegistry {
	return defaultTypeRegistry
}

// With returns a copy of the registry with the caster registered for tag.
// Relation tags cannot be overridden.
func (r TypeRegistry) With(tag TypeTag, caster Caster) (TypeRegistry, error) {
	if tag == "" || caster == nil || IsRelationTag(tag) || IsFrozenTag(tag) {
		return r, errors.Join(ErrInvalidOption, fmt.Errorf("cannot register caster for tag %q", tag))
	}

	casters := make(map[TypeTag]Caster, len(r.casters)+1)
	for k, v := range r.casters {
		casters[k] = v
	}
	casters[tag] = caster

	return TypeRegistry{casters: casters}, nil
}

// Resolve returns the Caster for tag.
func (r TypeRegistry) Resolve(tag TypeTag) (Caster, error) {
	caster, ok := r.casters[tag]
	if !ok {
		return nil, errors.Join(ErrUnresolvableTypeTag, fmt.Errorf("unknown type tag %q", tag))
	}

	return caster, nil
}

// Has reports whether tag can be resolved.
func (r TypeRegistry) Has(tag TypeTag) bool {
	_, ok := r.casters[tag]
	return ok
}

// IsRelationTag reports whether tag denotes a reference to another live object.
func IsRelationTag(tag TypeTag) bool {
	return tag == TagForeignKey || tag == TagOneToOne
}

// IsFrozenTag reports whether tag denotes a previously produced snapshot.
func IsFrozenTag(tag TypeTag) bool {
	return tag == TagFrozen
}

func castInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, strconv.ErrRange
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, strconv.ErrRange
		}
		return int64(v), nil
	case float32:
		return castInt(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v < math.MinInt64 || v >= math.MaxInt64 {
			return nil, strconv.ErrRange
		}
		if v != math.Trunc(v) {
			return nil, errNotIntegral
		}
		return int64(v), nil
	case json.Number:
		if i, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return i, nil
		}

		// integral numbers written with a fraction or an exponent, "42.0" or "4.2e1"
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return castInt(f)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return nil, errUnsupportedInput
	}
}

func castFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return nil, errUnsupportedInput
	}
}

func castText(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, errUnsupportedInput
	}
}

func castBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case json.Number:
		return strconv.ParseBool(v.String())
	case int64:
		return strconv.ParseBool(strconv.FormatInt(v, 10))
	case int:
		return strconv.ParseBool(strconv.Itoa(v))
	default:
		return nil, errUnsupportedInput
	}
}

func castDecimal(raw any) (any, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	default:
		return nil, errUnsupportedInput
	}
}

func castDate(raw any) (any, error) {
	switch v := raw.(type) {
	case strfmt.Date:
		return v, nil
	case time.Time:
		return strfmt.Date(time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, errUnsupportedInput
		}

		var date strfmt.Date
		if err := date.UnmarshalText([]byte(strings.TrimSpace(v))); err == nil {
			return date, nil
		}

		// a full timestamp is accepted and truncated to its date
		dateTime, err := strfmt.ParseDateTime(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		t := time.Time(dateTime)

		return strfmt.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)), nil
	default:
		return nil, errUnsupportedInput
	}
}

func castDateTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case strfmt.DateTime:
		return time.Time(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, errUnsupportedInput
		}

		dateTime, err := strfmt.ParseDateTime(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}

		return time.Time(dateTime), nil
	default:
		return nil, errUnsupportedInput
	}
}

func castUUID(raw any) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.Parse(strings.TrimSpace(v))
	default:
		return nil, errUnsupportedInput
	}
}

// castJSON normalizes opaque JSON values to what a standard decoder produces
// (float64 numbers, map[string]any objects), independent of how the payload was decoded.
func castJSON(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var normalized any
	if err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}

	return normalized, nil
}
