package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_Push(t *testing.T) {
	l := NewLink("p1", 4)
	require.NoError(t, l.Push([]byte("hello")))

	data := <-l.Outbound()
	assert.Equal(t, []byte("hello"), data)
}

func TestLink_PushClosed(t *testing.T) {
	l := NewLink("p1", 4)
	require.NoError(t, l.Close())
	assert.True(t, l.IsClosed())
	assert.Error(t, l.Push([]byte("fail")))
}

func TestLink_PushFull(t *testing.T) {
	l := NewLink("p1", 1)
	require.NoError(t, l.Push([]byte("first")))
	err := l.Push([]byte("overflow"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestLink_CloseIdempotent(t *testing.T) {
	l := NewLink("p1", 4)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, l.IsClosed())
}

func TestLink_DefaultBuffer(t *testing.T) {
	l := NewLink("p1", 0)
	for i := 0; i < 64; i++ {
		require.NoError(t, l.Push([]byte("x")))
	}
	assert.Error(t, l.Push([]byte("overflow")))
}
