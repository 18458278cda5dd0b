// Package document holds the presentation tree and the context that owns
// a presentation's registries, undo history and garbage collector.
package document

import (
	"maps"
	"slices"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/media"
)

const component = "document"

// Node is an element of the presentation tree. Media is attached per
// channel, for example "audio" or "image".
type Node struct {
	name     string
	parent   *Node
	children []*Node
	media    map[string]media.MediaData
}

// NewNode creates a detached node.
func NewNode(name string) *Node {
	return &Node{name: name, media: make(map[string]media.MediaData)}
}

func (n *Node) Name() string { return n.name }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in document order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// AppendChild attaches child as the last child of n.
func (n *Node) AppendChild(child *Node) error {
	return n.InsertChild(child, len(n.children))
}

// InsertChild attaches child at index i.
func (n *Node) InsertChild(child *Node, i int) error {
	if child == nil {
		return errors.ArgumentDomain(component, "child node must not be nil")
	}
	if i < 0 || i > len(n.children) {
		return errors.ArgumentDomain(component, "child index %d out of range [0, %d]", i, len(n.children))
	}
	if child.parent != nil {
		return errors.ArgumentDomain(component, "node %q already has a parent", child.name)
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return errors.ArgumentDomain(component, "node %q cannot become its own descendant", child.name)
		}
	}
	n.children = slices.Insert(n.children, i, child)
	child.parent = n
	return nil
}

// RemoveChild detaches child and returns its former index, or -1 if child
// is not a child of n.
func (n *Node) RemoveChild(child *Node) int {
	i := slices.Index(n.children, child)
	if i < 0 {
		return -1
	}
	n.children = slices.Delete(n.children, i, i+1)
	child.parent = nil
	return i
}

// SetMedia attaches md to channel. A nil md detaches the channel.
func (n *Node) SetMedia(channel string, md media.MediaData) {
	if md == nil {
		delete(n.media, channel)
		return
	}
	n.media[channel] = md
}

// Media returns the payload attached to channel, or nil.
func (n *Node) Media(channel string) media.MediaData { return n.media[channel] }

// Channels returns the channels with attached media, sorted.
func (n *Node) Channels() []string {
	return slices.Sorted(maps.Keys(n.media))
}

// Attached returns the node's media ordered by channel name.
func (n *Node) Attached() []media.MediaData {
	out := make([]media.MediaData, 0, len(n.media))
	for _, ch := range n.Channels() {
		out = append(out, n.media[ch])
	}
	return out
}

// Walk visits n and its descendants in depth-first pre-order until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			return
		}
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
}

// VisitDepthFirst reports each node's attached media in depth-first order.
func (n *Node) VisitDepthFirst(visit func(attached []media.MediaData) bool) {
	n.Walk(func(cur *Node) bool {
		return visit(cur.Attached())
	})
}
