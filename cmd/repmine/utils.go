// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/elastic/gosigar"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/lvldb"
	"github.com/repmine/repmine/mining"
	"github.com/repmine/repmine/pebbledb"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/token"
)

func initLogger(ctx *cli.Context) (*slog.LevelVar, error) {
	verbosity := ctx.GlobalInt(verbosityFlag.Name)
	if verbosity < log.LegacyLevelCrit || verbosity > log.LegacyLevelTrace {
		return nil, errors.Errorf("invalid verbosity %d", verbosity)
	}
	level := &slog.LevelVar{}
	level.Set(log.FromLegacyLevel(verbosity))
	log.SetDefault(log.NewLogger(log.NewStderrHandler(level, ctx.GlobalBool(jsonLogsFlag.Name))))
	return level, nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "repmine")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "repmine")
		default:
			return filepath.Join(home, ".repmine")
		}
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// parsePrincipal accepts a hex address, or any other string which is hashed into one.
func parsePrincipal(s string) (rep.Address, error) {
	if s == "" {
		return rep.Address{}, errors.New("principal required")
	}
	if addr, err := rep.ParseAddress(s); err == nil {
		return *addr, nil
	}
	return rep.BytesToAddress(rep.Keccak256([]byte(s)).Bytes()), nil
}

func fromPrincipal(ctx *cli.Context) (rep.Address, error) {
	principal, err := parsePrincipal(ctx.GlobalString(fromFlag.Name))
	if err != nil {
		return rep.Address{}, errors.Wrapf(err, "-%s", fromFlag.Name)
	}
	return principal, nil
}

func parseUint(s, name string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscan(s, &v); err != nil {
		return 0, errors.Wrapf(err, "parse %s", name)
	}
	return v, nil
}

func dataDir(ctx *cli.Context) (string, error) {
	dir := ctx.GlobalString(dataDirFlag.Name)
	if dir == "" {
		return "", errors.Errorf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	return dir, nil
}

func configPath(ctx *cli.Context, dir string) string {
	if path := ctx.GlobalString(configFlag.Name); path != "" {
		return path
	}
	return filepath.Join(dir, configFileName)
}

func openStore(engine, dir string, cacheMB int) (kv.Store, error) {
	switch engine {
	case "leveldb", "":
		db, err := lvldb.New(filepath.Join(dir, "mining.db"), lvldb.Options{CacheSize: cacheMB, OpenFilesCacheCapacity: 64})
		if err != nil {
			return nil, errors.Wrap(err, "open leveldb")
		}
		return db, nil
	case "pebble":
		db, err := pebbledb.New(filepath.Join(dir, "mining.pebble"), pebbledb.Options{CacheSize: cacheMB, MaxOpenFiles: 64})
		if err != nil {
			return nil, errors.Wrap(err, "open pebble")
		}
		return db, nil
	}
	return nil, errors.Errorf("unknown db engine %q", engine)
}

// normalizeCacheSize keeps the cache between 16MB and half of the physical ram.
func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem", "err", err)
	} else {
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

// node bundles everything a command needs over one data dir.
type node struct {
	dir       string
	cfg       *config
	db        kv.Store
	tokens    *token.Ledger
	network   *mining.Network
	judgePath string
}

func openNode(ctx *cli.Context, opts ...mining.Option) (*node, error) {
	dir, err := dataDir(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(configPath(ctx, dir))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Errorf("no network in %v, run init first", dir)
		}
		return nil, err
	}
	params, err := cfg.params()
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	policy, err := cfg.policy()
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	custody, err := cfg.custody()
	if err != nil {
		return nil, err
	}
	judgePath := filepath.Join(dir, judgeFileName)
	judge, err := newStaticJudge(judgePath)
	if err != nil {
		return nil, err
	}

	db, err := openStore(ctx.GlobalString(dbEngineFlag.Name), dir, normalizeCacheSize(ctx.GlobalInt(cacheFlag.Name)))
	if err != nil {
		return nil, err
	}
	tokens := token.NewLedger(db, custody)
	opts = append([]mining.Option{mining.WithPolicy(policy), mining.WithJudge(judge)}, opts...)
	network, err := mining.New(db, tokens, params, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &node{
		dir:       dir,
		cfg:       cfg,
		db:        db,
		tokens:    tokens,
		network:   network,
		judgePath: judgePath,
	}, nil
}

func (n *node) Close() {
	if err := n.db.Close(); err != nil {
		log.Warn("failed to close database", "err", err)
	}
}
