package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKeysNeverCollideWithIndex(t *testing.T) {
	r := NewRedisStore(nil, "dungeon-master", 0)
	assert.Equal(t, "dungeon-master:s:abc", r.key("abc"))
	assert.Equal(t, "dungeon-master:meta:index", r.indexKey())

	for _, id := range []string{"_index", "meta:index", "", ":meta:index"} {
		assert.NotEqual(t, r.indexKey(), r.key(id), id)
	}
	assert.Equal(t, "dm:checkpoint:s:x", NewRedisStore(nil, "", 0).key("x"))
}
