// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state is the revertable view over the kv store that every mining operation runs against.
// It follows the flow as below:
//
//	           o
//	           |
//	  [ revertable state ]
//	           |
//	    [ stacked map ] -> [ journal ] -> [ playback(staging) ] -> [ kv bulk ]
//	           |
//	     [ read-only kv ]
//
// Nothing reaches the store until a stage is committed, so an operation that fails halfway
// leaves no trace.
package state
