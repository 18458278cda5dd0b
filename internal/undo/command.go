// Package undo records reversible document edits as commands and replays
// them through undo and redo stacks, with nested transactions and a dirty
// marker for save-point tracking.
package undo

import (
	"slices"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/media"
)

// Command is a unit of document change.
type Command interface {
	Execute() error
	UnExecute() error
	// CanExecute reports whether Execute may be called now.
	CanExecute() bool
	// CanUnExecute reports whether the command is reversible. Only
	// reversible commands enter the undo stack.
	CanUnExecute() bool
	ShortDescription() string
	LongDescription() string
	// UsedMediaData returns every payload the command references, in
	// either its executed or un-executed state.
	UsedMediaData() []media.MediaData
}

// parented is implemented by commands embedding BaseCommand.
type parented interface {
	setParent(*CompositeCommand)
}

// BaseCommand carries descriptions and the parent back-reference. Embed it
// in concrete commands.
type BaseCommand struct {
	Short  string
	Long   string
	parent *CompositeCommand
}

// ShortDescription returns a short human-readable label, e.g. "Insert audio".
func (b *BaseCommand) ShortDescription() string { return b.Short }

// LongDescription returns a longer human-readable description.
func (b *BaseCommand) LongDescription() string {
	if b.Long == "" {
		return b.Short
	}
	return b.Long
}

// Parent returns the composite this command belongs to, or nil at top level.
func (b *BaseCommand) Parent() *CompositeCommand { return b.parent }

func (b *BaseCommand) setParent(p *CompositeCommand) { b.parent = p }

// CompositeCommand groups children into one atomic transaction. Execute
// runs children in order; UnExecute runs them in reverse.
type CompositeCommand struct {
	BaseCommand
	children []Command
}

var _ Command = (*CompositeCommand)(nil)

// NewCompositeCommand creates an empty composite.
func NewCompositeCommand(short, long string) *CompositeCommand {
	return &CompositeCommand{BaseCommand: BaseCommand{Short: short, Long: long}}
}

// Append adds cmd as the last child.
func (c *CompositeCommand) Append(cmd Command) {
	if p, ok := cmd.(parented); ok {
		p.setParent(c)
	}
	c.children = append(c.children, cmd)
}

// Children returns the direct children in execution order.
func (c *CompositeCommand) Children() []Command {
	return slices.Clone(c.children)
}

// Len returns the number of direct children.
func (c *CompositeCommand) Len() int { return len(c.children) }

// Execute runs every child in order. If a child fails, the children that
// already ran are un-executed in reverse and the failure is returned.
func (c *CompositeCommand) Execute() error {
	for i, child := range c.children {
		if err := child.Execute(); err != nil {
			if rbErr := unexecuteReverse(c.children[:i]); rbErr != nil {
				return errors.Join(err, rbErr)
			}
			return err
		}
	}
	return nil
}

// UnExecute reverses every child, last first. A failure stops the cascade
// and is returned unmasked.
func (c *CompositeCommand) UnExecute() error {
	return unexecuteReverse(c.children)
}

func unexecuteReverse(cmds []Command) error {
	for i := len(cmds) - 1; i >= 0; i-- {
		if err := cmds[i].UnExecute(); err != nil {
			return err
		}
	}
	return nil
}

// CanExecute reports whether every child can execute.
func (c *CompositeCommand) CanExecute() bool {
	for _, child := range c.children {
		if !child.CanExecute() {
			return false
		}
	}
	return true
}

// CanUnExecute reports whether every child is reversible.
func (c *CompositeCommand) CanUnExecute() bool {
	for _, child := range c.children {
		if !child.CanUnExecute() {
			return false
		}
	}
	return true
}

// ShortDescription falls back to the only child's description when the
// composite has none of its own.
func (c *CompositeCommand) ShortDescription() string {
	if c.Short == "" && len(c.children) == 1 {
		return c.children[0].ShortDescription()
	}
	return c.Short
}

// UsedMediaData returns the media of all children, duplicates included.
func (c *CompositeCommand) UsedMediaData() []media.MediaData {
	var out []media.MediaData
	for _, leaf := range Flatten(c) {
		out = append(out, leaf.UsedMediaData()...)
	}
	return out
}

// Flatten returns the leaf commands of cmd in execution order. A command
// that is not a composite is its own single leaf.
func Flatten(cmd Command) []Command {
	var leaves []Command
	stack := []Command{cmd}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		comp, ok := top.(*CompositeCommand)
		if !ok {
			leaves = append(leaves, top)
			continue
		}
		for i := len(comp.children) - 1; i >= 0; i-- {
			stack = append(stack, comp.children[i])
		}
	}
	return leaves
}
