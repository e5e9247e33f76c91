// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/rand"
	mathrand "math/rand/v2"

	"github.com/repmine/repmine/rep"
)

func RandAddress() (addr rep.Address) {
	rand.Read(addr[:])
	return
}

func RandomHash() (b32 rep.Bytes32) {
	rand.Read(b32[:])
	return
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}
