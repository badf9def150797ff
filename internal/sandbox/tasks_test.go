package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskTracker(t *testing.T) {
	var tr taskTracker

	// Not monitoring yet.
	tr.add()()
	assert.Equal(t, 0, tr.pending)

	tr.reset()
	first := tr.add()
	second := tr.add()
	assert.Equal(t, 2, tr.pending)

	tr.stop()
	settled := 0
	tr.whenSettled(func() { settled++ })
	assert.Equal(t, 0, settled)

	first()
	first()
	assert.Equal(t, 1, tr.pending)

	// Spawned by a pending task after monitoring stopped.
	nested := tr.add()
	second()
	assert.Equal(t, 0, settled)

	nested()
	assert.Equal(t, 1, settled)
	assert.Equal(t, 0, tr.pending)

	// No longer tracked once everything has settled.
	tr.add()
	assert.Equal(t, 0, tr.pending)
}

func TestTaskTrackerSettledImmediately(t *testing.T) {
	var tr taskTracker
	tr.reset()
	tr.stop()

	called := false
	tr.whenSettled(func() { called = true })
	assert.True(t, called)
}
