// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/test/datagen"
)

func M(a ...any) []any {
	return a
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Verdict
		want []any
	}{
		{Valid, Invalid, M(false, true)},
		{Invalid, Valid, M(true, true)},
		{Invalid, Invalid, M(false, true)},
		{Valid, Valid, M(false, false)},
		{Unknown, Valid, M(false, false)},
		{Invalid, Unknown, M(false, false)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, M(Compare(tt.a, tt.b)), "%v vs %v", tt.a, tt.b)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic()
	claim := Claim{Hash: datagen.RandomHash(), NodeCount: 10}

	v, err := s.JudgeClaim(claim)
	require.NoError(t, err)
	assert.Equal(t, Unknown, v)

	s.Set(claim, Invalid)
	v, _ = s.JudgeClaim(claim)
	assert.Equal(t, Invalid, v)

	v, _ = s.JudgeClaim(Claim{Hash: claim.Hash, NodeCount: 11})
	assert.Equal(t, Unknown, v)
}

func TestParseVerdict(t *testing.T) {
	for _, v := range []Verdict{Valid, Invalid, Unknown} {
		parsed, err := ParseVerdict(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
	_, err := ParseVerdict("maybe")
	assert.Error(t, err)
}
