package nested

import "strconv"

// Flatten collapses one mapping into a single-level record.
//
// A sequence under key k becomes columns k_i, or k_i_sk for each sub-key of a
// mapping element. Scalars and bare mappings pass through unchanged under k.
// Synthesized names that collide are last-write-wins. A non-mapping input
// yields an empty record.
func Flatten(record Node) Record {
	out := NewRecord()
	for _, e := range record.Entries() {
		if !e.Value.IsSequence() {
			out.Set(e.Key, e.Value)
			continue
		}
		for i, item := range e.Value.items {
			prefix := e.Key + "_" + strconv.Itoa(i)
			if !item.IsMapping() {
				out.Set(prefix, item)
				continue
			}
			for _, sub := range item.entries {
				out.Set(prefix+"_"+sub.Key, sub.Value)
			}
		}
	}
	return out
}

// FlattenAll flattens each record independently.
func FlattenAll(records []Node) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Flatten(r)
	}
	return out
}

// Inject returns a copy of the mapping m with key set to value. An existing
// key is overwritten in place, a new key is appended.
func Inject(m Node, key string, value Node) Node {
	entries := make([]Entry, 0, len(m.Entries())+1)
	replaced := false
	for _, e := range m.Entries() {
		if e.Key == key {
			e.Value = value
			replaced = true
		}
		entries = append(entries, e)
	}
	if !replaced {
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return Mapping(entries...)
}
