package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionAddRemove(t *testing.T) {
	c := NewCollection()
	a := &Stage{Name: "a"}
	b := &Stage{Name: "b"}

	require.NoError(t, c.Add(a))
	require.NoError(t, c.Add(b))
	assert.ErrorIs(t, c.Add(a), ErrDuplicateStage)
	assert.Equal(t, []*Stage{a, b}, c.Stages())

	assert.True(t, c.Remove(a))
	assert.False(t, c.Remove(a))
	assert.Equal(t, 1, c.Len())
}

func TestCollectionActive(t *testing.T) {
	c := NewCollection()
	a := &Stage{Name: "a"}
	b := &Stage{Name: "b"}
	require.NoError(t, c.Add(a))
	require.NoError(t, c.Add(b))

	assert.Empty(t, c.Active(), "stages start disabled")
	b.SetEnabled(true)
	assert.Equal(t, []*Stage{b}, c.Active())
}
