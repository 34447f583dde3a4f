// Package slideshow describes the indexed image sequence and the cursor that
// walks it.
package slideshow

import (
	"fmt"
	"strconv"
)

// Sequence is a closed range of image indices behind a URL template of the
// form {BaseLink}{index}{Format}.
type Sequence struct {
	BaseLink string
	Format   string
	Min      int
	Max      int
}

// Validate checks the range is non-empty.
func (s Sequence) Validate() error {
	if s.Min > s.Max {
		return fmt.Errorf("min index %d is greater than max index %d", s.Min, s.Max)
	}
	if s.BaseLink == "" {
		return fmt.Errorf("base link is empty")
	}
	return nil
}

// Len returns the number of images in the sequence.
func (s Sequence) Len() int {
	return s.Max - s.Min + 1
}

// URL returns the address of image i.
func (s Sequence) URL(i int) string {
	return s.BaseLink + strconv.Itoa(i) + s.Format
}

// Contains reports whether i is inside the range.
func (s Sequence) Contains(i int) bool {
	return i >= s.Min && i <= s.Max
}

// Cursor is the current position in a Sequence.
type Cursor struct {
	min, max int
	index    int
}

// NewCursor starts a cursor at seq.Min.
func NewCursor(seq Sequence) *Cursor {
	return &Cursor{min: seq.Min, max: seq.Max, index: seq.Min}
}

// Index returns the current position.
func (c *Cursor) Index() int {
	return c.index
}

// Advance moves one step forward, wrapping to the start past the end, and
// returns the new index.
func (c *Cursor) Advance() int {
	if c.index >= c.max {
		c.index = c.min
	} else {
		c.index++
	}
	return c.index
}
