// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/mining"
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/replogdb"
	"github.com/repmine/repmine/token"
)

func requireArgs(ctx *cli.Context, n int, usage string) error {
	if ctx.NArg() != n {
		return errors.Errorf("usage: %s %s", ctx.Command.Name, usage)
	}
	return nil
}

func formatTime(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func initAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	dir, err := dataDir(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrapf(err, "create data dir %v", dir)
	}
	path := configPath(ctx, dir)
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("network already initialised in %v", dir)
	}
	if err := saveConfig(path, defaultConfig()); err != nil {
		return errors.Wrap(err, "write config")
	}

	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()
	id, err := n.network.GetCurrentMiningCycle()
	if err != nil {
		return err
	}
	fmt.Printf("initialised network in %v, cycle %d open\n", dir, id)
	return nil
}

func amountAction(fn func(n *node, from rep.Address, amount string) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if _, err := initLogger(ctx); err != nil {
			return err
		}
		if err := requireArgs(ctx, 1, "<amount>"); err != nil {
			return err
		}
		from, err := fromPrincipal(ctx)
		if err != nil {
			return err
		}
		n, err := openNode(ctx)
		if err != nil {
			return err
		}
		defer n.Close()
		return fn(n, from, ctx.Args().First())
	}
}

var mintAction = amountAction(func(n *node, from rep.Address, s string) error {
	amount, err := rep.ParseAmount(s)
	if err != nil {
		return err
	}
	if err := n.tokens.Mint(from, amount); err != nil {
		return err
	}
	fmt.Printf("minted %v to %v\n", amount, from)
	return nil
})

var approveAction = amountAction(func(n *node, from rep.Address, s string) error {
	amount, err := rep.ParseAmount(s)
	if err != nil {
		return err
	}
	if err := n.tokens.Approve(from, amount); err != nil {
		return err
	}
	fmt.Printf("%v approved %v for staking\n", from, amount)
	return nil
})

var depositAction = amountAction(func(n *node, from rep.Address, s string) error {
	amount, err := rep.ParseAmount(s)
	if err != nil {
		return err
	}
	if err := n.network.Deposit(from, amount); err != nil {
		return err
	}
	staked, err := n.network.GetStakedBalance(from)
	if err != nil {
		return err
	}
	fmt.Printf("deposited %v, staked balance %v\n", amount, staked)
	return nil
})

var withdrawAction = amountAction(func(n *node, from rep.Address, s string) error {
	amount, err := rep.ParseAmount(s)
	if err != nil {
		return err
	}
	if err := n.network.Withdraw(from, amount); err != nil {
		return err
	}
	staked, err := n.network.GetStakedBalance(from)
	if err != nil {
		return err
	}
	fmt.Printf("withdrew %v, staked balance %v\n", amount, staked)
	return nil
})

func balanceAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	var (
		principal rep.Address
		err       error
	)
	if ctx.NArg() > 0 {
		principal, err = parsePrincipal(ctx.Args().First())
	} else {
		principal, err = fromPrincipal(ctx)
	}
	if err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	balance, err := n.tokens.BalanceOf(principal)
	if err != nil {
		return err
	}
	allowance, err := n.tokens.Allowance(principal)
	if err != nil {
		return err
	}
	acc, err := n.network.GetAccount(principal)
	if err != nil {
		return err
	}
	fmt.Printf("principal:  %v\n", principal)
	fmt.Printf("tokens:     %v\n", balance)
	fmt.Printf("allowance:  %v\n", allowance)
	fmt.Printf("staked:     %v\n", acc.Staked)
	if acc.LockedCycle != 0 {
		fmt.Printf("locked:     %v in cycle %d\n", acc.LockedAmount, acc.LockedCycle)
	}
	return nil
}

func cycleAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	id := ctx.Uint64(cycleFlag.Name)
	if id == 0 {
		if id, err = n.network.GetCurrentMiningCycle(); err != nil {
			return err
		}
	}
	c, status, err := n.network.GetCycle(id)
	if err != nil {
		return err
	}
	if c == nil {
		return errors.Errorf("cycle %d not found", id)
	}
	subs, err := n.network.GetSubmissions(id)
	if err != nil {
		return err
	}
	if ctx.Bool(dumpFlag.Name) {
		spew.Dump(c, subs)
		return nil
	}

	fmt.Printf("cycle %d: %v, window ends %v\n", c.ID, status, formatTime(c.WindowEnd))
	fmt.Printf("submissions %d, eliminated %d\n", c.NSubmissions, c.NEliminated)
	if c.HasWinner {
		fmt.Printf("winner %d, confirmed %v\n", c.WinnerIndex, formatTime(c.ConfirmedAt))
	}
	if c.Stalled {
		fmt.Println("STALLED: dispute exceeded its deadline")
	}
	for _, s := range subs {
		state := "alive"
		if s.Eliminated {
			state = "eliminated"
		}
		fmt.Printf("  #%d %v nodes=%d entries=%d verdict=%v %s\n", s.Index, s.Hash, s.NodeCount, s.Entries(), s.Verdict, state)
	}
	return nil
}

func submitAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	if err := requireArgs(ctx, 2, "<hash> <nodes>"); err != nil {
		return err
	}
	from, err := fromPrincipal(ctx)
	if err != nil {
		return err
	}
	hash, err := rep.ParseHashLiteral(ctx.Args().Get(0))
	if err != nil {
		return errors.Wrap(err, "parse hash")
	}
	nodes, err := parseUint(ctx.Args().Get(1), "nodes")
	if err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	id := ctx.Uint64(cycleFlag.Name)
	if id == 0 {
		if id, err = n.network.GetCurrentMiningCycle(); err != nil {
			return err
		}
	}
	sub, err := n.network.SubmitHash(from, id, hash, nodes, ctx.Uint64(entryFlag.Name))
	if err != nil {
		return err
	}
	fmt.Printf("submission #%d in cycle %d now backed by %d entries\n", sub.Index, id, sub.Entries())
	return nil
}

func judgeAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 3, "<hash> <nodes> <valid|invalid|unknown>"); err != nil {
		return err
	}
	dir, err := dataDir(ctx)
	if err != nil {
		return err
	}
	hash, err := rep.ParseHashLiteral(ctx.Args().Get(0))
	if err != nil {
		return errors.Wrap(err, "parse hash")
	}
	nodes, err := parseUint(ctx.Args().Get(1), "nodes")
	if err != nil {
		return err
	}
	verdict, err := oracle.ParseVerdict(ctx.Args().Get(2))
	if err != nil {
		return err
	}
	if err := setVerdict(filepath.Join(dir, judgeFileName), oracle.Claim{Hash: hash, NodeCount: nodes}, verdict); err != nil {
		return err
	}
	fmt.Printf("%v/%d judged %v\n", hash, nodes, verdict)
	return nil
}

func invalidateAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	if err := requireArgs(ctx, 2, "<index> <index>"); err != nil {
		return err
	}
	a, err := parseUint(ctx.Args().Get(0), "index")
	if err != nil {
		return err
	}
	b, err := parseUint(ctx.Args().Get(1), "index")
	if err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	e, err := n.network.Invalidate(a, b)
	if err != nil {
		return err
	}
	how := "oracle"
	if e.ByVote {
		how = "vote"
	}
	fmt.Printf("submission #%d eliminated by #%d (%s), %d principals punished\n", e.Loser, e.Winner, how, len(e.Punished))
	return nil
}

func confirmAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	if err := requireArgs(ctx, 1, "<index>"); err != nil {
		return err
	}
	index, err := parseUint(ctx.Args().First(), "index")
	if err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	c, err := n.network.Confirm(index)
	if err != nil {
		return err
	}
	fmt.Printf("cycle %d confirmed %v/%d, %d rewarded, %d punished, cycle %d open\n",
		c.CycleID, c.Winner.Hash, c.Winner.NodeCount, len(c.Rewarded), len(c.Punished), c.NextCycle.ID)
	return nil
}

func rootAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	hash, nodes, err := n.network.GetReputationRootHash()
	if err != nil {
		return err
	}
	length, err := n.network.GetReputationUpdateLogLength()
	if err != nil {
		return err
	}
	stats, err := n.network.GetStats()
	if err != nil {
		return err
	}
	miningRecords, err := kv.Count(n.db, mining.Bucket.Range())
	if err != nil {
		return err
	}
	tokenRecords, err := kv.Count(n.db, token.Bucket.Range())
	if err != nil {
		return err
	}
	fmt.Printf("root %v nodes %d\n", hash, nodes)
	fmt.Printf("log length %d\n", length)
	fmt.Printf("staked %v slashed %v rewarded %v\n", stats.Staked, stats.Slashed, stats.Rewarded)
	fmt.Printf("records mining %d token %d\n", miningRecords, tokenRecords)
	return nil
}

func appendAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	if err := requireArgs(ctx, 3, "<principal> <amount> <skill>"); err != nil {
		return err
	}
	principal, err := parsePrincipal(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	amount, err := rep.ParseAmount(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	skill, err := parseUint(ctx.Args().Get(2), "skill")
	if err != nil {
		return err
	}
	origin, err := fromPrincipal(ctx)
	if err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	index, err := n.network.AppendReputationUpdate(principal, amount, skill, origin, ctx.Uint64(updatesFlag.Name))
	if err != nil {
		return err
	}
	fmt.Printf("appended log entry %d\n", index)
	return nil
}

func openLogIndex(dir string) (*replogdb.DB, error) {
	db, err := replogdb.New(filepath.Join(dir, "replog.db"))
	if err != nil {
		return nil, errors.Wrap(err, "open log index")
	}
	return db, nil
}

func buildFilter(ctx *cli.Context) (*replogdb.Filter, error) {
	filter := &replogdb.Filter{
		Options: &replogdb.Options{Offset: ctx.Uint64(offsetFlag.Name), Limit: ctx.Uint64(limitFlag.Name)},
		Order:   replogdb.ASC,
	}
	if ctx.Bool(descFlag.Name) {
		filter.Order = replogdb.DESC
	}
	if s := ctx.String(principalFlag.Name); s != "" {
		principal, err := parsePrincipal(s)
		if err != nil {
			return nil, err
		}
		filter.Principal = &principal
	}
	if s := ctx.String(originFlag.Name); s != "" {
		origin, err := parsePrincipal(s)
		if err != nil {
			return nil, err
		}
		filter.Origin = &origin
	}
	if skill := ctx.Int64(skillFlag.Name); skill >= 0 {
		v := uint64(skill)
		filter.SkillID = &v
	}
	if id := ctx.Uint64(cycleFlag.Name); id != 0 {
		filter.CycleID = &id
	}
	return filter, nil
}

func logAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	filter, err := buildFilter(ctx)
	if err != nil {
		return err
	}
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.Close()

	index, err := openLogIndex(n.dir)
	if err != nil {
		return err
	}
	defer index.Close()

	exitSignal := handleExitSignal()
	if _, err := index.Sync(exitSignal, n.network); err != nil {
		return errors.Wrap(err, "sync log index")
	}
	entries, err := index.Filter(exitSignal, filter)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%6d %v %24v skill=%d origin=%v updates=%d/%d cycle=%d\n",
			e.Index, e.Principal, e.Amount, e.SkillID, e.Origin, e.NUpdates, e.NPreviousUpdates, e.CycleID)
	}
	log.Debug("log entries listed", "count", len(entries))
	return nil
}

func withExitSignal(fn func(ctx context.Context, cliCtx *cli.Context) error) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		return fn(handleExitSignal(), cliCtx)
	}
}
