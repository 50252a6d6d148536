package updates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	ch := Diff([]uint32{1, 2, 3}, []uint32{2, 3, 4}, []uint32{9, 7, 9})
	assert.Equal(t, []uint32{1, 4}, ch.ChangedLabels)
	assert.Equal(t, []uint32{2, 3}, ch.UnchangedLabels)
	assert.Equal(t, []uint32{7, 9}, ch.ChangedProps)
	assert.False(t, ch.Empty())
}

func TestDiffNoLabelChange(t *testing.T) {
	ch := Diff([]uint32{5}, []uint32{5}, []uint32{7})
	assert.Empty(t, ch.ChangedLabels)
	assert.Equal(t, []uint32{5}, ch.UnchangedLabels)
	assert.False(t, ch.Empty())

	ch = Diff([]uint32{5}, []uint32{5}, nil)
	assert.True(t, ch.Empty())
}

func TestDiffAddAndDropEverything(t *testing.T) {
	ch := Diff(nil, []uint32{2, 1}, nil)
	assert.Equal(t, []uint32{1, 2}, ch.ChangedLabels)
	assert.Empty(t, ch.UnchangedLabels)

	ch = Diff([]uint32{1, 2}, nil, nil)
	assert.Equal(t, []uint32{1, 2}, ch.ChangedLabels)
	assert.Empty(t, ch.UnchangedLabels)
}

func TestDiffDuplicateLabels(t *testing.T) {
	ch := Diff([]uint32{1, 1, 2}, []uint32{2, 2, 3, 3}, nil)
	assert.Equal(t, []uint32{1, 3}, ch.ChangedLabels)
	assert.Equal(t, []uint32{2}, ch.UnchangedLabels)
}

func TestSignature(t *testing.T) {
	a := Change{ChangedLabels: []uint32{1, 2}, ChangedProps: []uint32{7}}
	b := Change{ChangedLabels: []uint32{2, 1}, ChangedProps: []uint32{7}}
	assert.Equal(t, a.Signature(), b.Signature(), "facet order must not matter")

	// same ids in different facets must differ
	c := Change{ChangedLabels: []uint32{1, 2, 7}}
	d := Change{ChangedLabels: []uint32{1, 2}, UnchangedLabels: []uint32{7}}
	assert.NotEqual(t, c.Signature(), d.Signature())
	assert.NotEqual(t, a.Signature(), Change{}.Signature())
}
