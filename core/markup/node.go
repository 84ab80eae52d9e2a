// Package markup builds HTML fragments from a tree of tagged nodes.
//
// A Node has a tag, a text content slot, ordered attributes and ordered
// children. Rendering walks the tree and produces
//
//	<tag k1="v1" k2="v2">content + rendered children</tag>
//
// A space always follows the tag name, so a node without attributes renders
// as `<br ></br>`. Void elements are not special-cased. Text content and
// attribute values are HTML-escaped.
package markup

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	// ErrInvalidTag is returned when a tag name is empty or not a valid HTML name.
	ErrInvalidTag = errors.New("invalid tag")
	// ErrAlreadyAttached is returned when a child already belongs to a parent.
	ErrAlreadyAttached = errors.New("node already attached to a parent")
	// ErrCycle is returned when attaching a node would create a cycle.
	ErrCycle = errors.New("node cannot be attached to itself or a descendant")
	// ErrNilChild is returned when AddChild is given a nil node.
	ErrNilChild = errors.New("child node is nil")
)

// tagPattern accepts ASCII letters, digits and hyphens, starting with a letter.
var tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// Attr is a construction-time attribute. A nil Value means "not set".
type Attr struct {
	Key   string
	Value *string
}

// A returns a set attribute.
func A(key, value string) Attr {
	return Attr{Key: key, Value: &value}
}

// Node is a tagged element in a markup tree.
type Node struct {
	tag      string
	content  string
	keys     []string
	values   map[string]string
	children []*Node
	parent   *Node
}

// New creates a node. Attributes with a nil value are dropped.
func New(tag, content string, attrs ...Attr) (*Node, error) {
	if !tagPattern.MatchString(tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	n := &Node{
		tag:     tag,
		content: content,
		values:  make(map[string]string, len(attrs)),
	}
	for _, a := range attrs {
		n.SetAttribute(a.Key, a.Value)
	}
	return n, nil
}

// MustNew is like New but panics on an invalid tag. Intended for literal tags.
func MustNew(tag, content string, attrs ...Attr) *Node {
	n, err := New(tag, content, attrs...)
	if err != nil {
		panic(err)
	}
	return n
}

// Tag returns the node's tag name.
func (n *Node) Tag() string { return n.tag }

// Content returns the node's text content.
func (n *Node) Content() string { return n.content }

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Attribute returns the value stored for key.
func (n *Node) Attribute(key string) (string, bool) {
	v, ok := n.values[normalizeKey(key)]
	return v, ok
}

// SetAttribute sets key to *value. A nil value leaves any prior value in place.
// Trailing underscores are stripped from key, so "class_" is stored as "class".
func (n *Node) SetAttribute(key string, value *string) {
	if value == nil {
		return
	}
	key = normalizeKey(key)
	if _, exists := n.values[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.values[key] = *value
}

// Set is SetAttribute for a value that is always present.
func (n *Node) Set(key, value string) {
	n.SetAttribute(key, &value)
}

// AddChild appends child. A node belongs to at most one parent.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return ErrNilChild
	}
	if child.parent != nil {
		return ErrAlreadyAttached
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return ErrCycle
		}
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// AddText appends text wrapped in a span node.
func (n *Node) AddText(text string) {
	span := &Node{tag: "span", content: text, values: map[string]string{}, parent: n}
	n.children = append(n.children, span)
}

// Render serializes the node and its descendants.
func (n *Node) Render() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) String() string {
	return n.Render()
}

func (n *Node) render(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.tag)
	b.WriteByte(' ')
	for i, key := range n.keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(n.values[key]))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(html.EscapeString(n.content))
	for _, c := range n.children {
		c.render(b)
	}
	b.WriteString("</")
	b.WriteString(n.tag)
	b.WriteByte('>')
}

func normalizeKey(key string) string {
	return strings.TrimRight(key, "_")
}
