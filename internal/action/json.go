package action

import (
	"encoding/json"
	"fmt"
)

// ParseType reverses Type.String() for config/JSON sources that name an
// action type by its wire-stable enum name (spec.md §6.2, §6.4
// CustomEvent.actions).
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return NOP, fmt.Errorf("action: unknown type name %q", name)
}

// MarshalJSON encodes Type by its enum name, matching spec.md §6.2's
// Operation JSON form ("act" is the enum name, not an ordinal).
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a Type from its enum name.
func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
