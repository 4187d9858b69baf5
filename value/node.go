package value

// NodeKind tags the variant of a Node. Per spec.md §9's design note, the
// source's untyped maps-of-strings-or-maps-or-lists are replaced here
// with a tagged sum type, removing all dynamic casting:
//
//	Value = Str(string) | List([]Value) | Record([(string, Value)])
//
// Text is the only leaf of the value tree; List and Record are
// recursive, and Record is the only keyed variant.
type NodeKind int

const (
	// NodeText holds a string: the value at an "@attr" key, or at "#text".
	NodeText NodeKind = iota
	// NodeList holds an ordered list of Nodes: the value at any
	// child-element key, always a list even for a single occurrence (the
	// hard invariant of spec.md §3).
	NodeList
	// NodeRecord holds an ordered mapping from key to Node: one parsed
	// XML element's attributes, text, and child-element groupings.
	NodeRecord
)

// Node is the recursive value-tree representation of a parsed record
// (spec.md §3). A key is either "@attr" (an attribute, prefixed with
// "@"), "#text" (accumulated text content), or a child element's local
// name.
type Node struct {
	Kind NodeKind
	Text string
	List []Node

	// keys/vals back a small ordered mapping for NodeRecord. A slice
	// pair (not a map) preserves first-seen key order without needing a
	// second order-tracking structure, since record nodes are typically
	// small (a handful of attributes/children) and built once, read
	// once, then discarded (spec.md §3's lifecycle rule).
	keys []string
	vals []Node
}

// Text constructs a NodeText leaf.
func Text(s string) Node { return Node{Kind: NodeText, Text: s} }

// List constructs a NodeList from items, preserving order.
func List(items []Node) Node { return Node{Kind: NodeList, List: items} }

// NewRecord constructs an empty NodeRecord.
func NewRecord() Node { return Node{Kind: NodeRecord} }

// Set inserts or replaces the value at key, preserving first-seen order.
// It panics if called on a non-record node — callers only ever build
// records incrementally via NewRecord(), so this indicates a programming
// error in the extractor, not a data-dependent condition.
func (n *Node) Set(key string, v Node) {
	if n.Kind != NodeRecord {
		panic("value: Set called on non-record Node")
	}
	for i, k := range n.keys {
		if k == key {
			n.vals[i] = v
			return
		}
	}
	n.keys = append(n.keys, key)
	n.vals = append(n.vals, v)
}

// AppendChild appends v to the NodeList stored at key, creating it (as a
// one-element list) if absent. This is how the extractor enforces the
// "single-occurrence child elements still yield a list" invariant: the
// very first child under a given name already produces a NodeList.
func (n *Node) AppendChild(key string, v Node) {
	for i, k := range n.keys {
		if k == key {
			if n.vals[i].Kind != NodeList {
				n.vals[i] = List([]Node{n.vals[i]})
			}
			n.vals[i].List = append(n.vals[i].List, v)
			return
		}
	}
	n.Set(key, List([]Node{v}))
}

// Get returns the value at key and whether it was present. Only
// meaningful for NodeRecord; other kinds always report not-found.
func (n Node) Get(key string) (Node, bool) {
	for i, k := range n.keys {
		if k == key {
			return n.vals[i], true
		}
	}
	return Node{}, false
}

// Keys returns the record's keys in first-seen order. Empty for
// non-record nodes.
func (n Node) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Len reports the number of entries for NodeRecord, or the number of
// items for NodeList. Zero otherwise.
func (n Node) Len() int {
	switch n.Kind {
	case NodeRecord:
		return len(n.keys)
	case NodeList:
		return len(n.List)
	default:
		return 0
	}
}

// IsAttrKey reports whether key names an attribute ("@"-prefixed).
func IsAttrKey(key string) bool { return len(key) > 0 && key[0] == '@' }

// TextKey is the reserved key accumulated character data is stored
// under.
const TextKey = "#text"

// TextContent extracts the effective leaf text for coercion purposes: if
// n is itself NodeText, its string; if n is a NodeRecord holding only
// "#text" (optionally plus attribute keys), the "#text" value; otherwise
// the empty string. This mirrors spec.md §4.5's value-coercion rule
// ("extract #text from a value tree if the input is a struct, otherwise
// use the string form").
func (n Node) TextContent() (string, bool) {
	switch n.Kind {
	case NodeText:
		return n.Text, true
	case NodeRecord:
		if v, ok := n.Get(TextKey); ok && v.Kind == NodeText {
			return v.Text, true
		}
	}
	return "", false
}
