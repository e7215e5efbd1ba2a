package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("ch:*"))
	assert.True(t, hasPattern("ch:snap?hot"))
	assert.True(t, hasPattern("ch:[ab]"))
	assert.False(t, hasPattern("ch:snapshot"))
}

func TestKeyPrefix(t *testing.T) {
	c := &Client{prefix: "desk1"}
	assert.Equal(t, "desk1:ch:snapshot", c.key("ch:snapshot"))
}
