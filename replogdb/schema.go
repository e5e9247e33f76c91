// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package replogdb

// create a table for reputation log entries
const entryTableSchema = `CREATE TABLE IF NOT EXISTS entry (
	idx INTEGER PRIMARY KEY,
	principal BLOB(20) NOT NULL,
	amount TEXT NOT NULL,
	skillID INTEGER NOT NULL,
	origin BLOB(20) NOT NULL,
	nUpdates INTEGER NOT NULL,
	nPrevious INTEGER NOT NULL,
	cycleID INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS entryPrincipalIndex ON entry(principal);
CREATE INDEX IF NOT EXISTS entrySkillIndex ON entry(skillID);
CREATE INDEX IF NOT EXISTS entryOriginIndex ON entry(origin);
CREATE INDEX IF NOT EXISTS entryCycleIndex ON entry(cycleID);
`
