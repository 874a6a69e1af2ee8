package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexAddAndList(t *testing.T) {
	idx := NewIndex()

	idx.Add("lobby1", "1")
	idx.Add("lobby1", "2")
	idx.Add("lobby2", "3")

	assert.Equal(t, []string{"1", "2"}, idx.List("lobby1"))
	assert.Equal(t, []string{"3"}, idx.List("lobby2"))
}

func TestIndexListUnknownLobby(t *testing.T) {
	idx := NewIndex()
	assert.Empty(t, idx.List("nope"))
}

func TestIndexRemove(t *testing.T) {
	idx := NewIndex()
	idx.Add("lobby1", "1")
	idx.Add("lobby1", "2")
	idx.Add("lobby1", "3")

	idx.Remove("2")
	assert.Equal(t, []string{"1", "3"}, idx.List("lobby1"))

	idx.Remove("1")
	idx.Remove("3")
	assert.Empty(t, idx.List("lobby1"))
}

func TestIndexRemoveUnknownIsNoop(t *testing.T) {
	idx := NewIndex()
	idx.Add("lobby1", "1")

	idx.Remove("never-added")
	assert.Equal(t, []string{"1"}, idx.List("lobby1"))
}

func TestIndexListReturnsCopy(t *testing.T) {
	idx := NewIndex()
	idx.Add("lobby1", "1")
	idx.Add("lobby1", "2")

	got := idx.List("lobby1")
	got[0] = "mutated"

	assert.Equal(t, []string{"1", "2"}, idx.List("lobby1"))
}
