// Configuration surface: a generic structured value tree consumed by
// routing/policies/statistics. Configuration *parsing* (file discovery,
// CLI flags) is out of scope for the core; only the tree and its accessors
// live here. A YAML-backed loader is provided as an ambient convenience,
// grounded on the teacher's sim/bundle.go LoadPolicyBundle (same library);
// it does not reject unknown fields.

package netsim

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the shape of a configuration Value.
type ValueKind int

const (
	KindObject ValueKind = iota
	KindArray
	KindNumber
	KindLiteral
	KindBool
	KindNone
)

// Value is a node of the recursive configuration tree:
// Object(name, fields) | Array | Number | Literal | True/False | None.
type Value struct {
	Kind ValueKind

	// KindObject
	ObjectName string
	Fields     map[string]Value

	// KindArray
	Items []Value

	// KindNumber
	Number float64

	// KindLiteral
	Literal string

	// KindBool
	Bool bool
}

func ObjectValue(name string, fields map[string]Value) Value {
	return Value{Kind: KindObject, ObjectName: name, Fields: fields}
}
func ArrayValue(items []Value) Value   { return Value{Kind: KindArray, Items: items} }
func NumberValue(n float64) Value      { return Value{Kind: KindNumber, Number: n} }
func LiteralValue(s string) Value      { return Value{Kind: KindLiteral, Literal: s} }
func BoolValue(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func NoneValue() Value                 { return Value{Kind: KindNone} }

func (v Value) String() string {
	switch v.Kind {
	case KindObject:
		return fmt.Sprintf("%s{...}", v.ObjectName)
	case KindArray:
		return fmt.Sprintf("[%d items]", len(v.Items))
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindLiteral:
		return v.Literal
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "None"
	}
}

// Field looks up a field of an Object Value. The second return reports
// whether it was present; callers of components with documented forward
// compatibility must ignore a missing field rather than erroring.
func (v Value) Field(name string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	f, ok := v.Fields[name]
	return f, ok
}

// RequireObject validates that v is an Object named `name`, returning an
// IllFormedConfiguration error otherwise. Used by components whose
// top-level name is typo-prone per §6.
func RequireObject(v Value, name string) (Value, error) {
	if v.Kind != KindObject || v.ObjectName != name {
		return Value{}, IllFormedConfigurationValue(v, fmt.Sprintf("expected object %q", name))
	}
	return v, nil
}

// AsNumber extracts a float64, erroring with IllFormedConfiguration if v is
// not a Number.
func AsNumber(v Value) (float64, error) {
	if v.Kind != KindNumber {
		return 0, IllFormedConfigurationValue(v, "expected a number")
	}
	return v.Number, nil
}

// AsInt extracts an int, erroring with IllFormedConfiguration if v is not a
// whole-valued Number.
func AsInt(v Value) (int, error) {
	n, err := AsNumber(v)
	if err != nil {
		return 0, err
	}
	if n != float64(int(n)) {
		return 0, IllFormedConfigurationValue(v, "expected a whole number")
	}
	return int(n), nil
}

// AsLiteral extracts the literal string, erroring with IllFormedConfiguration
// otherwise.
func AsLiteral(v Value) (string, error) {
	if v.Kind != KindLiteral {
		return "", IllFormedConfigurationValue(v, "expected a literal")
	}
	return v.Literal, nil
}

// FromYAMLNode converts a decoded yaml.Node tree into a Value tree. Decoding
// itself (file I/O, strict unknown-field rejection) is the caller's
// responsibility; this function only bridges yaml's node shapes onto ours.
func FromYAMLNode(node *yaml.Node) (Value, error) {
	if node == nil {
		return NoneValue(), nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NoneValue(), nil
		}
		return FromYAMLNode(node.Content[0])
	case yaml.MappingNode:
		fields := make(map[string]Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val, err := FromYAMLNode(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			fields[key] = val
		}
		return ObjectValue("", fields), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			val, err := FromYAMLNode(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, val)
		}
		return ArrayValue(items), nil
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!int", "!!float":
			f, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return Value{}, IllFormedConfigurationValue(node.Value, "not a number")
			}
			return NumberValue(f), nil
		case "!!bool":
			b, err := strconv.ParseBool(node.Value)
			if err != nil {
				return Value{}, IllFormedConfigurationValue(node.Value, "not a bool")
			}
			return BoolValue(b), nil
		case "!!null":
			return NoneValue(), nil
		default:
			return LiteralValue(node.Value), nil
		}
	default:
		return NoneValue(), nil
	}
}

// LoadConfigurationFile parses the bytes of a YAML configuration file into
// a Value tree. Every field is kept and none is rejected as unknown;
// mappings become Objects with an empty ObjectName. A YAML syntax error is
// returned as a CouldNotParseFile error. Grounded on sim/bundle.go's
// LoadPolicyBundle.
func LoadConfigurationFile(data []byte) (Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return Value{}, Wrap(CouldNotParseFile, err, "parsing configuration")
	}
	return FromYAMLNode(&node)
}
