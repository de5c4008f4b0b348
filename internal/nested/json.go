package nested

import (
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// ParseJSON decodes a JSON document into a Node, keeping object keys in
// document order.
func ParseJSON(data []byte) (Node, error) {
	if !gjson.ValidBytes(data) {
		return Node{}, eris.New("nested: invalid json")
	}
	return FromResult(gjson.ParseBytes(data)), nil
}

// FromResult converts a gjson result into a Node.
func FromResult(r gjson.Result) Node {
	switch {
	case r.IsObject():
		var entries []Entry
		r.ForEach(func(key, value gjson.Result) bool {
			entries = append(entries, Entry{Key: key.String(), Value: FromResult(value)})
			return true
		})
		return Mapping(entries...)
	case r.IsArray():
		var items []Node
		r.ForEach(func(_, value gjson.Result) bool {
			items = append(items, FromResult(value))
			return true
		})
		return Sequence(items...)
	}

	switch r.Type {
	case gjson.String:
		return Scalar(r.Str)
	case gjson.Number:
		if i := r.Int(); float64(i) == r.Num {
			return Scalar(i)
		}
		return Scalar(r.Num)
	case gjson.True:
		return Scalar(true)
	case gjson.False:
		return Scalar(false)
	default:
		return Scalar(nil)
	}
}
