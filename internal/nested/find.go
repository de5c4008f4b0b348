package nested

// FindValues returns every value stored under key anywhere in tree, in
// depth-first pre-order. A matched value is not searched further.
func FindValues(tree Node, key string) []Node {
	var out []Node
	return findValues(tree, key, out)
}

func findValues(n Node, key string, out []Node) []Node {
	switch n.kind {
	case KindMapping:
		for _, e := range n.entries {
			if e.Key == key {
				out = append(out, e.Value)
				continue
			}
			if !e.Value.IsScalar() {
				out = findValues(e.Value, key, out)
			}
		}
	case KindSequence:
		for _, item := range n.items {
			out = findValues(item, key, out)
		}
	}
	return out
}

// FindStrings is FindValues rendered as text, skipping non-scalar matches.
func FindStrings(tree Node, key string) []string {
	values := FindValues(tree, key)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsScalar() {
			out = append(out, v.String())
		}
	}
	return out
}
