package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceStopsAtLastRecord(t *testing.T) {
	c := NewCursor(3)

	c.Advance()
	c.Advance()
	assert.Equal(t, 2, c.Position())

	// No wrap, no error at the boundary
	c.Advance()
	assert.Equal(t, 2, c.Position())
}

func TestRetreatStopsAtFirstRecord(t *testing.T) {
	c := NewCursor(3)

	c.Retreat()
	assert.Equal(t, 0, c.Position())

	c.Advance()
	c.Retreat()
	assert.Equal(t, 0, c.Position())
}

func TestEmptySequence(t *testing.T) {
	c := NewCursor(0)

	c.Advance()
	assert.Equal(t, 0, c.Position())
	c.Retreat()
	assert.Equal(t, 0, c.Position())

	_, found := c.SkipLabeled(func(int) bool { return true })
	assert.False(t, found)
}

func TestSkipLabeledStopsAtFirstUnlabeled(t *testing.T) {
	labeled := []bool{true, true, false, true}
	c := NewCursor(len(labeled))

	position, found := c.SkipLabeled(func(i int) bool { return labeled[i] })

	assert.Equal(t, 2, position)
	assert.True(t, found)
}

func TestSkipLabeledAllLabeledTerminatesAtLastIndex(t *testing.T) {
	c := NewCursor(4)

	position, found := c.SkipLabeled(func(int) bool { return true })

	assert.Equal(t, 3, position)
	assert.False(t, found, "should signal that no unlabeled records remain")
}

func TestSkipLabeledFromCurrentUnlabeledIsNoOp(t *testing.T) {
	c := NewCursor(4)

	position, found := c.SkipLabeled(func(int) bool { return false })

	assert.Equal(t, 0, position)
	assert.True(t, found)
}
