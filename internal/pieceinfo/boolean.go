package pieceinfo

import (
	"encoding/json"
	"strings"
)

// FlexibleBool decodes the hub's loosely typed policy flags: JSON booleans,
// numbers, and strings like "true", "1", "yes", "on" all count as true.
// Null, empty, and anything unrecognized count as false.
type FlexibleBool bool

func (b *FlexibleBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = FlexibleBool(truthy(raw))
	return nil
}

func (b FlexibleBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// Bool returns the plain boolean value.
func (b FlexibleBool) Bool() bool {
	return bool(b)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	default:
		return false
	}
}
