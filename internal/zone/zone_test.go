package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateZoneStartsAtOne(t *testing.T) {
	r := NewRegistry()
	id := r.CreateZone("main", "THREAD", "")
	assert.EqualValues(t, 1, id)

	id2 := r.CreateZone("worker", "THREAD", "")
	assert.EqualValues(t, 2, id2)
}

func TestDefinitionsFromIndex(t *testing.T) {
	r := NewRegistry()
	r.CreateZone("a", "THREAD", "")
	r.CreateZone("b", "TASK", "")

	defs := r.Definitions(1)
	require.Len(t, defs, 1)
	assert.Equal(t, "b", defs[0].Name)
	assert.EqualValues(t, 2, defs[0].ID)
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	r.CreateZone("a", "THREAD", "")
	r.Clear()
	assert.Equal(t, 0, r.Len())

	id := r.CreateZone("b", "THREAD", "")
	assert.EqualValues(t, 1, id, "ids restart from 1 after Clear")
}
