package audio

import (
	"io"
	"time"

	"github.com/tphakala/mediaedit/internal/errors"
	"github.com/tphakala/mediaedit/internal/media"
	"github.com/tphakala/mediaedit/internal/undo"
)

// InsertCommand inserts staged audio into a payload. The audio is staged
// when the command is created, so Execute and UnExecute only rewrite clip
// lists and can be repeated any number of times.
type InsertCommand struct {
	undo.BaseCommand
	target *MediaData
	pos    int64
	// staged keeps the inserted clips reachable while the command lives
	// on either stack.
	staged *MediaData
}

var _ undo.Command = (*InsertCommand)(nil)

// NewInsertCommand stages dur of raw PCM from r for insertion at time at.
func NewInsertCommand(target *MediaData, r io.Reader, at, dur time.Duration) (*InsertCommand, error) {
	if target == nil {
		return nil, errors.ArgumentDomain(component, "insert target must not be nil")
	}
	clips, pos, err := target.prepareInsert(r, at, dur)
	if err != nil {
		return nil, err
	}
	return &InsertCommand{
		BaseCommand: undo.BaseCommand{Short: "Insert audio", Long: "Insert " + dur.String() + " of audio at " + at.String()},
		target:      target,
		pos:         pos,
		staged:      target.detached(clips),
	}, nil
}

func (c *InsertCommand) Execute() error {
	return c.target.insertClips(c.pos, c.staged.clips)
}

func (c *InsertCommand) UnExecute() error {
	_, err := c.target.removeBytes(c.pos, c.pos+c.staged.PCMLength())
	return err
}

// CanExecute reports whether the insert position lies within the target.
func (c *InsertCommand) CanExecute() bool { return c.pos <= c.target.PCMLength() }

func (c *InsertCommand) CanUnExecute() bool { return true }

// UsedMediaData returns the target and the staged audio.
func (c *InsertCommand) UsedMediaData() []media.MediaData {
	return []media.MediaData{c.target, c.staged}
}

// RemoveCommand removes a time range from a payload. The removed clips are
// kept so UnExecute can put them back without copying audio.
type RemoveCommand struct {
	undo.BaseCommand
	target  *MediaData
	begin   int64
	end     int64
	removed *MediaData
}

var _ undo.Command = (*RemoveCommand)(nil)

// NewRemoveCommand prepares the removal of [begin, end).
func NewRemoveCommand(target *MediaData, begin, end time.Duration) (*RemoveCommand, error) {
	if target == nil {
		return nil, errors.ArgumentDomain(component, "remove target must not be nil")
	}
	b, e, err := target.byteRange(begin, end)
	if err != nil {
		return nil, err
	}
	return &RemoveCommand{
		BaseCommand: undo.BaseCommand{Short: "Remove audio", Long: "Remove audio from " + begin.String() + " to " + end.String()},
		target:      target,
		begin:       b,
		end:         e,
		removed:     target.detached(nil),
	}, nil
}

func (c *RemoveCommand) Execute() error {
	removed, err := c.target.removeBytes(c.begin, c.end)
	if err != nil {
		return err
	}
	c.removed.clips = removed
	return nil
}

func (c *RemoveCommand) UnExecute() error {
	if err := c.target.insertClips(c.begin, c.removed.clips); err != nil {
		return err
	}
	c.removed.clips = nil
	return nil
}

// CanExecute reports whether the range still lies within the target.
func (c *RemoveCommand) CanExecute() bool { return c.end <= c.target.PCMLength() }

func (c *RemoveCommand) CanUnExecute() bool { return true }

// UsedMediaData returns the target and the removed audio.
func (c *RemoveCommand) UsedMediaData() []media.MediaData {
	return []media.MediaData{c.target, c.removed}
}
