package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderIDIsHex(t *testing.T) {
	id := OrderID()
	assert.True(t, IsValidOrderID(id), id)
	assert.NotEqual(t, id, OrderID())
}

func TestPrefixedGenerator(t *testing.T) {
	g := NewGenerator("wp")
	assert.True(t, strings.HasPrefix(g.NodeID(), "wp_"))

	mission := g.MissionID()
	assert.True(t, strings.HasPrefix(mission, "wp_"))
	assert.Len(t, mission, len("wp_")+8)
}

func TestIsValidOrderIDRejectsGarbage(t *testing.T) {
	assert.False(t, IsValidOrderID("short"))
	assert.False(t, IsValidOrderID(strings.Repeat("z", 32)))
}
