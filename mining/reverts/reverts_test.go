// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	revert := Newf(KindDuplicateEntry, "entry %d", 3)
	assert.Equal(t, "duplicate entry: entry 3", revert.Error())
	assert.Equal(t, "duplicate entry", ErrDuplicateEntry.Error())

	assert.True(t, IsRevertErr(revert))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
}

func Test_RevertIs(t *testing.T) {
	err := Newf(KindNotOpposing, "index %d eliminated", 1)
	assert.True(t, errors.Is(err, ErrNotOpposing))
	assert.False(t, errors.Is(err, ErrUnresolvable))

	wrapped := pkgerrors.Wrap(err, "invalidate")
	assert.True(t, errors.Is(wrapped, ErrNotOpposing))
	assert.True(t, IsRevertErr(wrapped))
	assert.Equal(t, KindNotOpposing, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("other")))
}
