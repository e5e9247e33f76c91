// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	_, err := NewLRU[int, string](0)
	assert.Error(t, err)

	c, err := NewLRU[int, string](2)
	require.NoError(t, err)

	loads := 0
	loader := func(k int) (string, error) {
		loads++
		if k < 0 {
			return "", errors.New("negative")
		}
		return string(rune('a' + k)), nil
	}

	v, err := c.GetOrLoad(1, loader)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	v, err = c.GetOrLoad(1, loader)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, loads)

	_, err = c.GetOrLoad(-1, loader)
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	c.Add(2, "c")
	c.Add(3, "d")
	_, ok := c.Get(1)
	assert.False(t, ok, "least recently used entry evicted")
	assert.Equal(t, 2, c.Len())

	changed, hit, miss := c.Stats()
	assert.True(t, changed)
	assert.Equal(t, int64(1), hit)
	assert.Equal(t, int64(3), miss)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
