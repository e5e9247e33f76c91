// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/replogdb"
)

const exportChunk = 512

// exportEntries writes count entries of src starting at first into w as a snappy framed stream of
// rlp encoded entries. progress is called after every chunk.
func exportEntries(ctx context.Context, src replogdb.Source, w io.Writer, first, count uint64, progress func(n int)) error {
	sw := snappy.NewBufferedWriter(w)
	for next, end := first, first+count; next < end; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		entries, err := src.Entries(next, min(end-next, exportChunk))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			if err := rlp.Encode(sw, e); err != nil {
				return errors.Wrap(err, "encode entry")
			}
		}
		next += uint64(len(entries))
		if progress != nil {
			progress(len(entries))
		}
	}
	return sw.Close()
}

// readEntries decodes a stream written by exportEntries.
func readEntries(r io.Reader, fn func(e *replog.Entry) error) error {
	stream := rlp.NewStream(bufio.NewReader(snappy.NewReader(r)), 0)
	for {
		var e replog.Entry
		if err := stream.Decode(&e); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "decode entry")
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
}

func exportAction(ctx context.Context, cliCtx *cli.Context) error {
	if _, err := initLogger(cliCtx); err != nil {
		return err
	}
	path := cliCtx.String(fileFlag.Name)
	if path == "" {
		return errors.Errorf("-%s required", fileFlag.Name)
	}
	n, err := openNode(cliCtx)
	if err != nil {
		return err
	}
	defer n.Close()

	length, err := n.network.GetReputationUpdateLogLength()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Println(">> Exporting reputation update log <<")
	bar := pb.New64(int64(length)).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	if err := exportEntries(ctx, n.network, f, 0, length, func(count int) { bar.Add(count) }); err != nil {
		return err
	}
	bar.Finish()
	return f.Sync()
}

func verifyExportAction(cliCtx *cli.Context) error {
	path := cliCtx.String(fileFlag.Name)
	if path == "" {
		return errors.Errorf("-%s required", fileFlag.Name)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		count   uint64
		updates uint64
	)
	if err := readEntries(f, func(e *replog.Entry) error {
		if e.NPreviousUpdates != updates {
			return errors.Errorf("entry %d: previous updates %d, expected %d", count, e.NPreviousUpdates, updates)
		}
		updates += e.NUpdates
		count++
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("%v: %d entries, %d updates\n", path, count, updates)
	return nil
}
