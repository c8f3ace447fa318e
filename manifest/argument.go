package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/piston-launch/pistonmeta/rules"
)

// ArgumentKind keys the per-phase argument lists.
type ArgumentKind string

const (
	ArgumentGame ArgumentKind = "game"
	ArgumentJVM  ArgumentKind = "jvm"
)

// Argument is one command-line argument entry: either a bare string, or an
// object carrying one or more values gated behind rules.
type Argument struct {
	Rules  []rules.Rule
	Values []string
}

// AppliesTo reports whether the argument's rule gate passes.
func (a Argument) AppliesTo(env rules.Environment) bool {
	return rules.Allows(a.Rules, env)
}

// Resolve returns the argument's values when it applies, or nil.
func (a Argument) Resolve(env rules.Environment) []string {
	if !a.AppliesTo(env) {
		return nil
	}
	return a.Values
}

type argumentObject struct {
	Rules []rules.Rule    `json:"rules,omitempty"`
	Value json.RawMessage `json:"value"`
}

func (a *Argument) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*a = Argument{Values: []string{plain}}
		return nil
	}
	var obj argumentObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("argument must be a string or an object: %w", err)
	}
	values, err := unmarshalStringOrList(obj.Value)
	if err != nil {
		return err
	}
	*a = Argument{Rules: obj.Rules, Values: values}
	return nil
}

func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	var value any = a.Values
	if len(a.Values) == 1 {
		value = a.Values[0]
	}
	return json.Marshal(map[string]any{"rules": a.Rules, "value": value})
}

func unmarshalStringOrList(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("argument value must be a string or a list of strings: %w", err)
	}
	return list, nil
}
