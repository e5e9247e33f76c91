// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/lvldb"
)

func newStore(t *testing.T) kv.Store {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCheckpointRevert(t *testing.T) {
	db := newStore(t)
	require.NoError(t, db.Put([]byte("b/k1"), []byte("v0")))

	bucket := kv.Bucket("b/")
	st := New(bucket.NewGetter(db))

	v, err := st.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v0"), v)

	v, err = st.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	rev := st.NewCheckpoint()
	st.Put([]byte("k1"), []byte("v1"))
	st.Put([]byte("k2"), []byte("v2"))

	v, _ = st.Get([]byte("k1"))
	assert.Equal(t, []byte("v1"), v)

	st.RevertTo(rev)
	v, _ = st.Get([]byte("k1"))
	assert.Equal(t, []byte("v0"), v)
	v, _ = st.Get([]byte("k2"))
	assert.Nil(t, v)
	assert.Equal(t, 0, st.Stage().Len())

	assert.Panics(t, func() { st.RevertTo(0) })
}

func TestStageCommit(t *testing.T) {
	db := newStore(t)
	require.NoError(t, db.Put([]byte("b/gone"), []byte("x")))

	bucket := kv.Bucket("b/")
	st := New(bucket.NewGetter(db))
	st.Put([]byte("k"), []byte("1"))
	st.Put([]byte("k"), []byte("2"))
	st.Delete([]byte("gone"))

	stage := st.Stage()
	assert.Equal(t, 2, stage.Len())

	// nothing visible before commit
	_, err := db.Get([]byte("b/k"))
	assert.True(t, db.IsNotFound(err))

	require.NoError(t, stage.Commit(db, bucket))

	v, err := db.Get([]byte("b/k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	has, err := db.Has([]byte("b/gone"))
	require.NoError(t, err)
	assert.False(t, has)
}
