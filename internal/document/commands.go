package document

import (
	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/undo"
)

// SetMediaCommand attaches a payload to a node channel, remembering the
// payload it replaced.
type SetMediaCommand struct {
	undo.BaseCommand
	node     *Node
	channel  string
	next     media.MediaData
	previous media.MediaData
}

var _ undo.Command = (*SetMediaCommand)(nil)

// NewSetMediaCommand prepares attaching md to channel of node. A nil md
// detaches the channel.
func NewSetMediaCommand(node *Node, channel string, md media.MediaData) (*SetMediaCommand, error) {
	if node == nil {
		return nil, errors.ArgumentDomain(component, "node must not be nil")
	}
	if channel == "" {
		return nil, errors.ArgumentDomain(component, "channel must not be empty")
	}
	return &SetMediaCommand{
		BaseCommand: undo.BaseCommand{Short: "Set " + channel + " media"},
		node:        node,
		channel:     channel,
		next:        md,
	}, nil
}

func (c *SetMediaCommand) Execute() error {
	c.previous = c.node.Media(c.channel)
	c.node.SetMedia(c.channel, c.next)
	return nil
}

func (c *SetMediaCommand) UnExecute() error {
	c.node.SetMedia(c.channel, c.previous)
	return nil
}

func (c *SetMediaCommand) CanExecute() bool   { return true }
func (c *SetMediaCommand) CanUnExecute() bool { return true }

// UsedMediaData returns both the attached and the replaced payload.
func (c *SetMediaCommand) UsedMediaData() []media.MediaData {
	var out []media.MediaData
	for _, md := range []media.MediaData{c.next, c.previous} {
		if md != nil {
			out = append(out, md)
		}
	}
	return out
}

// InsertNodeCommand inserts a node into a parent at a fixed index.
type InsertNodeCommand struct {
	undo.BaseCommand
	parent *Node
	child  *Node
	index  int
}

var _ undo.Command = (*InsertNodeCommand)(nil)

// NewInsertNodeCommand prepares inserting child under parent at index.
func NewInsertNodeCommand(parent, child *Node, index int) (*InsertNodeCommand, error) {
	if parent == nil || child == nil {
		return nil, errors.ArgumentDomain(component, "parent and child must not be nil")
	}
	return &InsertNodeCommand{
		BaseCommand: undo.BaseCommand{Short: "Insert node " + child.Name()},
		parent:      parent,
		child:       child,
		index:       index,
	}, nil
}

func (c *InsertNodeCommand) Execute() error { return c.parent.InsertChild(c.child, c.index) }

func (c *InsertNodeCommand) UnExecute() error {
	if c.parent.RemoveChild(c.child) < 0 {
		return errors.State(component, errors.NewStd("inserted node is no longer a child of its parent"))
	}
	return nil
}

func (c *InsertNodeCommand) CanExecute() bool {
	return c.child.Parent() == nil && c.index >= 0 && c.index <= len(c.parent.children)
}

func (c *InsertNodeCommand) CanUnExecute() bool { return true }

// UsedMediaData returns the media of the whole inserted subtree, which
// stays referenced while the insertion can be redone.
func (c *InsertNodeCommand) UsedMediaData() []media.MediaData {
	var out []media.MediaData
	c.child.VisitDepthFirst(func(attached []media.MediaData) bool {
		out = append(out, attached...)
		return true
	})
	return out
}
