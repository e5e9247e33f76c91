// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

var sink []byte

func TestAppendNumbers(t *testing.T) {
	assert.Equal(t, "99999", string(appendInt64(nil, 99999)))
	assert.Equal(t, "100,000", string(appendInt64(nil, 100000)))
	assert.Equal(t, "-1,234,567", string(appendInt64(nil, -1234567)))

	wei, _ := new(big.Int).SetString("2000000000000000000", 10)
	assert.Equal(t, "2,000,000,000,000,000,000", string(appendBigInt(nil, wei)))
	assert.Equal(t, "-2,000,000,000,000,000,000", string(appendBigInt(nil, new(big.Int).Neg(wei))))
	assert.Equal(t, "1,000", string(appendU256(nil, uint256.NewInt(1000))))
}

func TestTerminalHandler(t *testing.T) {
	var (
		buf bytes.Buffer
		lvl slog.LevelVar
	)
	lvl.Set(slog.LevelInfo)
	l := NewLogger(NewTerminalHandlerWithLevel(&buf, &lvl, false))

	l.Debug("hidden")
	l.Info("deposited", "amount", big.NewInt(1000000), "principal", "0xabc")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.HasPrefix(out, "INFO ["))
	assert.Contains(t, out, "amount=1,000,000")
	assert.Contains(t, out, "principal=0xabc")
}

func TestWithContextFollowsRoot(t *testing.T) {
	old := Root()
	defer SetDefault(old)

	pkgLogger := WithContext("pkg", "test")

	var buf bytes.Buffer
	SetDefault(NewLogger(JSONHandler(&buf)))
	pkgLogger.Warn("stalled", "cycle", 3)

	assert.Contains(t, buf.String(), `"pkg":"test"`)
	assert.Contains(t, buf.String(), `"lvl":"warn"`)
	assert.Contains(t, buf.String(), `"cycle":3`)
}

func TestFromLegacyLevel(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(LegacyLevelCrit))
	assert.Equal(t, slog.LevelInfo, FromLegacyLevel(LegacyLevelInfo))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
}

func BenchmarkPrettyInt64Logfmt(b *testing.B) {
	buf := make([]byte, 100)
	b.ReportAllocs()
	for b.Loop() {
		sink = appendInt64(buf, rand.Int64()) //#nosec G404
	}
}
