// Package schema implements the Schema Validator (C8): a declarative, data-driven
// field-rule check for tool input payloads. Per spec §9's Design Notes, this is
// deliberately not reflection- or codegen-based: a Rule is a plain value, and a schema
// is just a slice of Rules, so new tool payloads are described by composing data, not
// by generating code from struct tags.
package schema

import "fmt"

// Kind enumerates the field types a Rule can check.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindArray  Kind = "array"
	KindObject Kind = "object"
	KindEnum   Kind = "enum"
)

// Rule describes one field's validation: its path, expected kind, whether it's
// required, and kind-specific constraints (range, enum membership, non-emptiness).
type Rule struct {
	Path     string
	Kind     Kind
	Required bool
	Enum     []string    // valid for KindEnum
	Min      *float64    // valid for KindNumber
	Max      *float64    // valid for KindNumber
	MinItems int         // valid for KindArray (0 = no constraint unless NonEmpty)
	NonEmpty bool        // valid for KindArray and KindString: reject an empty array or string
	Elem     *Rule       // valid for KindArray: rule applied to each element
	Fields   []Rule      // valid for KindObject: nested field rules
}

// Result is the validator's outcome (spec §4.9): ok, or the first failing path/reason.
type Result struct {
	OK      bool   `json:"ok"`
	Path    string `json:"path,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Schema is a named set of field rules for one tool's payload.
type Schema struct {
	Tool  string
	Rules []Rule
}

// Validate checks payload (a decoded JSON value, typically map[string]interface{})
// against the schema's rules, returning the first violation found in rule order.
func (s Schema) Validate(payload map[string]interface{}) Result {
	for _, rule := range s.Rules {
		if res := validateField(rule, payload); !res.OK {
			return res
		}
	}
	return Result{OK: true}
}

func validateField(rule Rule, payload map[string]interface{}) Result {
	value, present := lookup(payload, rule.Path)
	if !present {
		if rule.Required {
			return fail(rule.Path, "required_field_missing", fmt.Sprintf("%q is required", rule.Path))
		}
		return Result{OK: true}
	}
	return validateValue(rule, value)
}

func validateValue(rule Rule, value interface{}) Result {
	switch rule.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return fail(rule.Path, "wrong_type", fmt.Sprintf("%q must be a string", rule.Path))
		}
		if rule.NonEmpty && s == "" {
			return fail(rule.Path, "empty_string", fmt.Sprintf("%q must not be empty", rule.Path))
		}
	case KindNumber:
		n, ok := asFloat(value)
		if !ok {
			return fail(rule.Path, "wrong_type", fmt.Sprintf("%q must be a number", rule.Path))
		}
		if rule.Min != nil && n < *rule.Min {
			return fail(rule.Path, "out_of_range", fmt.Sprintf("%q must be >= %v", rule.Path, *rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			return fail(rule.Path, "out_of_range", fmt.Sprintf("%q must be <= %v", rule.Path, *rule.Max))
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return fail(rule.Path, "wrong_type", fmt.Sprintf("%q must be a boolean", rule.Path))
		}
	case KindEnum:
		s, ok := value.(string)
		if !ok || !isMember(s, rule.Enum) {
			return fail(rule.Path, "invalid_enum", fmt.Sprintf("%q must be one of %v", rule.Path, rule.Enum))
		}
	case KindArray:
		arr, ok := value.([]interface{})
		if !ok {
			return fail(rule.Path, "wrong_type", fmt.Sprintf("%q must be an array", rule.Path))
		}
		if rule.NonEmpty && len(arr) == 0 {
			return fail(rule.Path, "empty_array", fmt.Sprintf("%q must not be empty", rule.Path))
		}
		if rule.MinItems > 0 && len(arr) < rule.MinItems {
			return fail(rule.Path, "too_few_items", fmt.Sprintf("%q must have at least %d items", rule.Path, rule.MinItems))
		}
		if rule.Elem != nil {
			for i, item := range arr {
				elemRule := *rule.Elem
				elemRule.Path = fmt.Sprintf("%s[%d]", rule.Path, i)
				if res := validateValue(elemRule, item); !res.OK {
					return res
				}
			}
		}
	case KindObject:
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fail(rule.Path, "wrong_type", fmt.Sprintf("%q must be an object", rule.Path))
		}
		for _, nested := range rule.Fields {
			if res := validateField(nested, obj); !res.OK {
				return res
			}
		}
	}
	return Result{OK: true}
}

// lookup returns the top-level field named path from a decoded JSON object; dotted
// paths are not traversed.
func lookup(payload map[string]interface{}, path string) (interface{}, bool) {
	v, ok := payload[path]
	return v, ok
}

func isMember(s string, enum []string) bool {
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func fail(path, reason, message string) Result {
	return Result{OK: false, Path: path, Reason: reason, Message: message}
}
