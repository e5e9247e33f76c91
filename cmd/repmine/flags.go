// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/repmine/repmine/log"
)

func envVar(name string) string {
	return "REPMINE_" + name
}

var (
	dataDirFlag = cli.StringFlag{
		Name:   "data-dir",
		Value:  defaultDataDir(),
		Usage:  "directory for the network database and config",
		EnvVar: envVar("DATA_DIR"),
	}
	configFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "config file path (defaults to config.yaml in the data dir)",
		EnvVar: envVar("CONFIG"),
	}
	dbEngineFlag = cli.StringFlag{
		Name:   "db-engine",
		Value:  "leveldb",
		Usage:  "storage engine (leveldb|pebble)",
		EnvVar: envVar("DB_ENGINE"),
	}
	verbosityFlag = cli.IntFlag{
		Name:   "verbosity",
		Value:  log.LegacyLevelInfo,
		Usage:  "log verbosity (0-5)",
		EnvVar: envVar("VERBOSITY"),
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:   "json-logs",
		Usage:  "output logs in JSON format",
		EnvVar: envVar("JSON_LOGS"),
	}
	fromFlag = cli.StringFlag{
		Name:   "from",
		Usage:  "principal acting (hex address or a name hashed into one)",
		EnvVar: envVar("FROM"),
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:   "enable-metrics",
		Usage:  "enables metrics collection",
		EnvVar: envVar("ENABLE_METRICS"),
	}
	metricsAddrFlag = cli.StringFlag{
		Name:   "metrics-addr",
		Value:  "localhost:2112",
		Usage:  "metrics service listening address",
		EnvVar: envVar("METRICS_ADDR"),
	}
	enableAdminFlag = cli.BoolFlag{
		Name:   "enable-admin",
		Usage:  "enables the admin service (log level, health, log entry feed)",
		EnvVar: envVar("ENABLE_ADMIN"),
	}
	adminAddrFlag = cli.StringFlag{
		Name:   "admin-addr",
		Value:  "localhost:2113",
		Usage:  "admin service listening address",
		EnvVar: envVar("ADMIN_ADDR"),
	}
	cacheFlag = cli.IntFlag{
		Name:   "cache",
		Value:  64,
		Usage:  "megabytes of ram allocated to the mining database cache",
		EnvVar: envVar("CACHE"),
	}
	ntpServerFlag = cli.StringFlag{
		Name:   "ntp-server",
		Value:  "pool.ntp.org",
		Usage:  "server used to check the local clock, empty to skip",
		EnvVar: envVar("NTP_SERVER"),
	}
	housekeepIntervalFlag = cli.DurationFlag{
		Name:   "housekeep-interval",
		Value:  defaultHousekeepInterval,
		Usage:  "interval between housekeeping passes",
		EnvVar: envVar("HOUSEKEEP_INTERVAL"),
	}

	// command flags
	cycleFlag = cli.Uint64Flag{
		Name:  "cycle",
		Usage: "cycle id, the active cycle when omitted",
	}
	entryFlag = cli.Uint64Flag{
		Name:  "entry",
		Value: 1,
		Usage: "entry index backing the submission",
	}
	dumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "dump the full records",
	}
	principalFlag = cli.StringFlag{
		Name:  "principal",
		Usage: "filter by principal",
	}
	originFlag = cli.StringFlag{
		Name:  "origin",
		Usage: "filter by origin",
	}
	skillFlag = cli.Int64Flag{
		Name:  "skill",
		Value: -1,
		Usage: "filter by skill id",
	}
	offsetFlag = cli.Uint64Flag{
		Name:  "offset",
		Usage: "number of entries to skip",
	}
	limitFlag = cli.Uint64Flag{
		Name:  "limit",
		Value: 100,
		Usage: "maximum number of entries",
	}
	descFlag = cli.BoolFlag{
		Name:  "desc",
		Usage: "newest entries first",
	}
	updatesFlag = cli.Uint64Flag{
		Name:  "updates",
		Value: 4,
		Usage: "number of reputation tree updates the entry causes",
	}
	fileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "export file path",
	}
)
