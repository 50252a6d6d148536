package indra

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/drpcorg/indra/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRefStartsEmpty(t *testing.T) {
	r := NewMapRef(nil, utils.NewDefaultLogger(slog.LevelError))
	require.NotNil(t, r.Current())
	assert.Equal(t, 0, r.Current().Size())
	assert.Equal(t, uint64(1), r.Version())
	assert.Equal(t, uint64(1), r.Current().Version())
}

func TestModifyPublishesClone(t *testing.T) {
	r := NewMapRef(nil, nil)
	old := r.Current()

	published := r.Modify(func(m *IndexMap) {
		m.Insert(1, newTestProxy(1, 3, 7))
	})

	assert.Same(t, published, r.Current())
	assert.NotSame(t, old, r.Current())
	assert.Equal(t, uint64(2), r.Version())
	assert.Equal(t, 1, r.Current().Size())

	// a reader holding the old snapshot sees nothing
	assert.Equal(t, 0, old.Size())
	_, ok := old.ById(1)
	assert.False(t, ok)
}

func TestModifySerializesWriters(t *testing.T) {
	r := NewMapRef(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			r.Modify(func(m *IndexMap) {
				m.Insert(id, newTestProxy(id, uint32(id), 7))
			})
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 16, r.Current().Size())
	assert.Equal(t, uint64(17), r.Version())
}

func TestSwapListeners(t *testing.T) {
	r := NewMapRef(nil, nil)

	var got []*IndexMap
	r.Subscribe("test", func(m *IndexMap) {
		got = append(got, m)
	})

	published := r.Modify(func(m *IndexMap) {
		m.Insert(1, newTestProxy(1, 3, 7))
	})
	require.Len(t, got, 1)
	assert.Same(t, published, got[0])

	r.Unsubscribe("test")
	r.Modify(func(m *IndexMap) {
		m.Remove(1)
	})
	assert.Len(t, got, 1)
}
