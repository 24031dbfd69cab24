package serve

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/protobuf/types/known/structpb"
)

// sanitizeUTF8 ensures a string contains only valid UTF-8 characters.
// Invalid sequences are replaced with the Unicode replacement character,
// since protobuf string fields require valid UTF-8.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			builder.WriteRune(utf8.RuneError)
			i++
		} else {
			builder.WriteRune(r)
			i += size
		}
	}

	return builder.String()
}

// ToStruct converts a tool payload to a protobuf Struct so it can be carried
// over gRPC. Values structpb cannot represent directly (structs, typed
// slices, time.Time) are coerced through their JSON form.
func ToStruct(payload map[string]any) (*structpb.Struct, error) {
	if payload == nil {
		return structpb.NewStruct(nil)
	}

	coerced := make(map[string]any, len(payload))
	for key, value := range payload {
		v, err := coerceValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		coerced[sanitizeUTF8(key)] = v
	}

	s, err := structpb.NewStruct(coerced)
	if err != nil {
		return nil, fmt.Errorf("converting payload to struct: %w", err)
	}
	return s, nil
}

// FromStruct converts a protobuf Struct back into a tool payload.
// A nil struct yields an empty map, never nil.
func FromStruct(s *structpb.Struct) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return s.AsMap()
}

// coerceValue makes a value representable by structpb. Primitives and
// map/slice combinations of them pass through; everything else is
// round-tripped through JSON.
func coerceValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return val, nil
	case string:
		return sanitizeUTF8(val), nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			coerced, err := coerceValue(item)
			if err != nil {
				return nil, err
			}
			out[sanitizeUTF8(k)] = coerced
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			coerced, err := coerceValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("value of type %T is not representable: %w", val, err)
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("decoding coerced value: %w", err)
		}
		return decoded, nil
	}
}
