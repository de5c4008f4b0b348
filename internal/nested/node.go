// Package nested models loosely structured data (decoded JSON, XML, vendor
// payloads) as a tagged tree and reduces it to flat tabular records.
package nested

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Node holds.
type Kind int

const (
	// KindScalar is a terminal value: string, number, bool, or nil.
	KindScalar Kind = iota
	// KindMapping is an ordered set of key/value entries.
	KindMapping
	// KindSequence is an ordered list of nodes.
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Entry is one key/value pair of a mapping node.
type Entry struct {
	Key   string
	Value Node
}

// Node is a scalar, an ordered mapping, or a sequence. The zero value is a
// nil scalar.
type Node struct {
	kind    Kind
	scalar  any
	entries []Entry
	items   []Node
}

// Scalar returns a scalar node holding v.
func Scalar(v any) Node {
	return Node{kind: KindScalar, scalar: v}
}

// Mapping returns a mapping node with the given entries in order.
func Mapping(entries ...Entry) Node {
	return Node{kind: KindMapping, entries: entries}
}

// Sequence returns a sequence node with the given items in order.
func Sequence(items ...Node) Node {
	return Node{kind: KindSequence, items: items}
}

// E is shorthand for building a mapping entry.
func E(key string, value Node) Entry {
	return Entry{Key: key, Value: value}
}

// Strings returns a sequence of string scalars.
func Strings(values ...string) Node {
	items := make([]Node, len(values))
	for i, v := range values {
		items[i] = Scalar(v)
	}
	return Sequence(items...)
}

// Kind returns the variant held by n.
func (n Node) Kind() Kind { return n.kind }

// IsScalar reports whether n is a scalar.
func (n Node) IsScalar() bool { return n.kind == KindScalar }

// IsMapping reports whether n is a mapping.
func (n Node) IsMapping() bool { return n.kind == KindMapping }

// IsSequence reports whether n is a sequence.
func (n Node) IsSequence() bool { return n.kind == KindSequence }

// Value returns the scalar value, or nil for non-scalars.
func (n Node) Value() any {
	if n.kind != KindScalar {
		return nil
	}
	return n.scalar
}

// Entries returns the mapping entries. Nil for non-mappings.
func (n Node) Entries() []Entry {
	if n.kind != KindMapping {
		return nil
	}
	return n.entries
}

// Items returns the sequence items. Nil for non-sequences.
func (n Node) Items() []Node {
	if n.kind != KindSequence {
		return nil
	}
	return n.items
}

// Get returns the value of the first entry named key in a mapping.
func (n Node) Get(key string) (Node, bool) {
	for _, e := range n.Entries() {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Node{}, false
}

// String renders a scalar as CSV cell text. Mappings and sequences render in
// a compact bracketed form so an opaque pass-through value is still visible
// in a report.
func (n Node) String() string {
	switch n.kind {
	case KindMapping:
		parts := make([]string, len(n.entries))
		for i, e := range n.entries {
			parts[i] = strconv.Quote(e.Key) + ": " + e.Value.quoted()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindSequence:
		parts := make([]string, len(n.items))
		for i, item := range n.items {
			parts[i] = item.quoted()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return formatScalar(n.scalar)
}

func (n Node) quoted() string {
	if s, ok := n.scalar.(string); ok && n.kind == KindScalar {
		return strconv.Quote(s)
	}
	return n.String()
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// FromAny converts decoded Go values into a Node. map[string]any keys are
// sorted because Go maps carry no order; use ParseJSON when document order
// matters.
func FromAny(v any) Node {
	switch t := v.(type) {
	case Node:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, len(keys))
		for i, k := range keys {
			entries[i] = Entry{Key: k, Value: FromAny(t[k])}
		}
		return Mapping(entries...)
	case []any:
		items := make([]Node, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Sequence(items...)
	case []string:
		return Strings(t...)
	default:
		return Scalar(t)
	}
}
