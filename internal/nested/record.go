package nested

// Record is a single-level row: ordered, uniquely named columns.
type Record struct {
	names  []string
	values map[string]Node
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{values: make(map[string]Node)}
}

// RecordOf builds a record from entries, applying Set in order.
func RecordOf(entries ...Entry) Record {
	r := NewRecord()
	for _, e := range entries {
		r.Set(e.Key, e.Value)
	}
	return r
}

// Set stores value under name. Overwriting an existing column keeps its
// original position.
func (r *Record) Set(name string, value Node) {
	if r.values == nil {
		r.values = make(map[string]Node)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get returns the value of column name.
func (r Record) Get(name string) (Node, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Text returns the column rendered as cell text, or "" when absent.
func (r Record) Text(name string) string {
	v, ok := r.values[name]
	if !ok {
		return ""
	}
	return v.String()
}

// Columns returns the column names in order.
func (r Record) Columns() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.names) }

// Entries returns the columns as mapping entries.
func (r Record) Entries() []Entry {
	if len(r.names) == 0 {
		return nil
	}
	out := make([]Entry, len(r.names))
	for i, name := range r.names {
		out[i] = Entry{Key: name, Value: r.values[name]}
	}
	return out
}

// Node returns the record as a mapping node.
func (r Record) Node() Node {
	return Mapping(r.Entries()...)
}

// Clone returns an independent copy of r.
func (r Record) Clone() Record {
	out := Record{
		names:  append([]string(nil), r.names...),
		values: make(map[string]Node, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Row renders the record against an aligned column list. Missing columns
// become empty cells.
func (r Record) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = r.Text(c)
	}
	return row
}

// Columns returns the union of column names across records. The leading
// columns come first, followed by the rest in first-seen order.
func Columns(records []Record, leading ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range leading {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, r := range records {
		for _, c := range r.names {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
