package item

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsID(t *testing.T) {
	a := New("Kettle", "Boils water", "kitchen", 1, 11)
	b := New("Kettle", "Boils water", "kitchen", 1, 11)

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Kettle", a.ItemName)
	assert.Equal(t, 1, a.Stock)

	_, err = uuid.Parse(NewID())
	assert.NoError(t, err)
}
