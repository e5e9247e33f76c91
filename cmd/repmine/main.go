// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// repmine runs a staking-backed reputation mining network over a local data dir.
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fullVersion()
	app.Name = "repmine"
	app.Usage = "Staking-backed reputation mining"
	app.Copyright = "2026 The repmine developers"
	app.Flags = []cli.Flag{
		dataDirFlag,
		configFlag,
		dbEngineFlag,
		cacheFlag,
		verbosityFlag,
		jsonLogsFlag,
		fromFlag,
		enableMetricsFlag,
		metricsAddrFlag,
		enableAdminFlag,
		adminAddrFlag,
		ntpServerFlag,
		housekeepIntervalFlag,
	}
	app.Commands = []cli.Command{
		{Name: "init", Usage: "initialise a network in the data dir", Action: initAction},
		{Name: "mint", Usage: "mint tokens to --from", ArgsUsage: "<amount>", Action: mintAction},
		{Name: "approve", Usage: "approve the staking custody to pull tokens of --from", ArgsUsage: "<amount>", Action: approveAction},
		{Name: "deposit", Usage: "stake tokens of --from", ArgsUsage: "<amount>", Action: depositAction},
		{Name: "withdraw", Usage: "withdraw stake of --from", ArgsUsage: "<amount>", Action: withdrawAction},
		{Name: "balance", Usage: "show token and stake balances", ArgsUsage: "[principal]", Action: balanceAction},
		{
			Name:   "cycle",
			Usage:  "show a mining cycle and its submissions",
			Flags:  []cli.Flag{cycleFlag, dumpFlag},
			Action: cycleAction,
		},
		{
			Name:      "submit",
			Usage:     "submit a reputation root hash as --from",
			ArgsUsage: "<hash> <nodes>",
			Flags:     []cli.Flag{cycleFlag, entryFlag},
			Action:    submitAction,
		},
		{Name: "judge", Usage: "record the oracle verdict of a claim", ArgsUsage: "<hash> <nodes> <verdict>", Action: judgeAction},
		{Name: "invalidate", Usage: "resolve a pairing of two submissions", ArgsUsage: "<index> <index>", Action: invalidateAction},
		{Name: "confirm", Usage: "confirm the surviving submission", ArgsUsage: "<index>", Action: confirmAction},
		{Name: "root", Usage: "show the canonical root, log length and stake totals", Action: rootAction},
		{
			Name:      "append",
			Usage:     "append an external reputation update with origin --from",
			ArgsUsage: "<principal> <amount> <skill>",
			Flags:     []cli.Flag{updatesFlag},
			Action:    appendAction,
		},
		{
			Name:   "log",
			Usage:  "query the reputation update log",
			Flags:  []cli.Flag{principalFlag, originFlag, skillFlag, cycleFlag, offsetFlag, limitFlag, descFlag},
			Action: logAction,
		},
		{
			Name:   "export",
			Usage:  "export the reputation update log",
			Flags:  []cli.Flag{fileFlag},
			Action: withExitSignal(exportAction),
		},
		{
			Name:   "verify-export",
			Usage:  "check an exported log file",
			Flags:  []cli.Flag{fileFlag},
			Action: verifyExportAction,
		},
		{Name: "run", Usage: "run housekeeping and the admin services", Action: withExitSignal(runAction)},
	}
	return app
}

func main() {
	// flags read their EnvVar while parsing, so .env files go first
	dir := os.Getenv(dataDirFlag.EnvVar)
	if dir == "" {
		dir = defaultDataDir()
	}
	if err := loadEnv(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
