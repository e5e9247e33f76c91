// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/repmine/repmine/admin"
	"github.com/repmine/repmine/clock"
	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/metrics"
	"github.com/repmine/repmine/mining"
	"github.com/repmine/repmine/mining/replog"
)

const (
	defaultHousekeepInterval = 10 * time.Second
	ntpCheckInterval         = 10 * time.Minute
	ntpTolerance             = 2 * time.Second
)

// indexers fans committed entries out to every indexer, stopping at the first failure.
type indexers []mining.Indexer

func (is indexers) IndexEntries(first uint64, entries []*replog.Entry) error {
	for _, i := range is {
		if err := i.IndexEntries(first, entries); err != nil {
			return err
		}
	}
	return nil
}

type housekeeper interface {
	Housekeep() (mining.HousekeepResult, error)
}

// housekeepLoop runs a housekeeping pass every interval until ctx is done.
func housekeepLoop(ctx context.Context, hk housekeeper, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := hk.Housekeep(); err != nil {
			log.Warn("housekeeping failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func ntpLoop(ctx context.Context, server string) error {
	ticker := time.NewTicker(ntpCheckInterval)
	defer ticker.Stop()
	for {
		clock.CheckOffset(clock.NTPQuery, server, ntpTolerance)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runAction(ctx context.Context, cliCtx *cli.Context) error {
	defer func() { log.Info("exited") }()

	logLevel, err := initLogger(cliCtx)
	if err != nil {
		return err
	}
	if cliCtx.GlobalBool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	dir, err := dataDir(cliCtx)
	if err != nil {
		return err
	}
	index, err := openLogIndex(dir)
	if err != nil {
		return err
	}
	defer func() { log.Info("closing log index..."); index.Close() }()

	feed := admin.NewFeed()
	n, err := openNode(cliCtx, mining.WithIndexer(indexers{index, feed}))
	if err != nil {
		return err
	}
	defer func() { log.Info("closing database..."); n.Close() }()

	if _, err := index.Sync(ctx, n.network); err != nil {
		return errors.Wrap(err, "sync log index")
	}

	if cliCtx.GlobalBool(enableMetricsFlag.Name) {
		url, closeFunc, err := admin.StartServer(cliCtx.GlobalString(metricsAddrFlag.Name), admin.MetricsHandler())
		if err != nil {
			return errors.Wrap(err, "start metrics server")
		}
		log.Info("metrics server started", "url", url)
		defer closeFunc()
	}
	if cliCtx.GlobalBool(enableAdminFlag.Name) {
		url, closeFunc, err := admin.StartServer(cliCtx.GlobalString(adminAddrFlag.Name), admin.HTTPHandler(logLevel, n.network, feed))
		if err != nil {
			return errors.Wrap(err, "start admin server")
		}
		log.Info("admin server started", "url", url)
		defer closeFunc()
	}

	id, err := n.network.GetCurrentMiningCycle()
	if err != nil {
		return err
	}
	log.Info("mining network running", "dir", dir, "index", index.Path(), "cycle", id)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return housekeepLoop(ctx, n.network, cliCtx.GlobalDuration(housekeepIntervalFlag.Name))
	})
	if server := cliCtx.GlobalString(ntpServerFlag.Name); server != "" {
		g.Go(func() error { return ntpLoop(ctx, server) })
	}
	return g.Wait()
}
