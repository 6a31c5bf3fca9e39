// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/cmd/farm/scenario"
	"github.com/vechain/farm/eventdb"
	"github.com/vechain/farm/kv"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/lvldb"
)

func initLogger(ctx *cli.Context) {
	lvl := log.FromVerbosity(ctx.Int(verbosityFlag.Name))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandler(os.Stderr, lvl)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandler(os.Stderr, lvl, useColor)
	}
	log.SetDefault(handler)
}

func loadScenario(ctx *cli.Context) (*scenario.Scenario, error) {
	path := ctx.String(scenarioFlag.Name)
	if path == "" {
		return nil, errors.Errorf("missing required flag --%s", scenarioFlag.Name)
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "load scenario '%v'", path)
	}
	return sc, nil
}

// instanceDir returns the directory holding the databases of sc under dataDir.
func instanceDir(dataDir string, sc *scenario.Scenario) string {
	return filepath.Join(dataDir, fmt.Sprintf("instance-%x", sc.ID().Bytes()[24:]))
}

type databases struct {
	main   kv.GetPutCloser
	events *eventdb.EventDB
}

func (dbs *databases) Close() {
	if err := dbs.events.Close(); err != nil {
		log.Warn("failed to close event database", "err", err)
	}
	if err := dbs.main.Close(); err != nil {
		log.Warn("failed to close main database", "err", err)
	}
}

// openDatabases opens the main and event databases of sc, in memory when no data dir is set.
func openDatabases(ctx *cli.Context, sc *scenario.Scenario) (*databases, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		mainDB, err := lvldb.NewMem()
		if err != nil {
			return nil, errors.WithMessage(err, "open main database")
		}
		eventDB, err := eventdb.NewMem()
		if err != nil {
			mainDB.Close()
			return nil, errors.WithMessage(err, "open event database")
		}
		return &databases{mainDB, eventDB}, nil
	}

	dir := instanceDir(dataDir, sc)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.WithMessagef(err, "create data dir at '%v'", dir)
	}
	logger.Info("opening databases", "dir", dir)

	cacheMB := ctx.Int(cacheFlag.Name)
	mainDB, err := lvldb.New(filepath.Join(dir, "main.db"), lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: 64,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "open main database at '%v'", dir)
	}
	eventDB, err := eventdb.New(filepath.Join(dir, "events.db"))
	if err != nil {
		mainDB.Close()
		return nil, errors.WithMessagef(err, "open event database at '%v'", dir)
	}
	return &databases{mainDB, eventDB}, nil
}

type server struct {
	*http.Server
}

// startServer listens on addr and serves handler in g. The returned server's Addr is the bound address.
func startServer(g *errgroup.Group, addr string, handler http.Handler) (*server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WithMessagef(err, "listen on '%v'", addr)
	}
	srv := &server{&http.Server{
		Addr:              listener.Addr().String(),
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
	}}
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return srv, nil
}

func handleExitSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printSummary writes the state of every pool at the head block.
func printSummary(w io.Writer, v interface {
	View(fn func(c *chef.Chef, head uint32) error) error
}) error {
	return v.View(func(c *chef.Chef, head uint32) error {
		dev, err := c.Dev()
		if err != nil {
			return err
		}
		total, err := c.TotalAllocPoint()
		if err != nil {
			return err
		}
		n, err := c.PoolLength()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "head:       %d\n", head)
		fmt.Fprintf(w, "chef:       %v\n", c.Address())
		fmt.Fprintf(w, "dev:        %v\n", dev)
		fmt.Fprintf(w, "alloc:      %d\n", total)
		fmt.Fprintf(w, "pools:      %d\n", n)

		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "PID\tSTAKE TOKEN\tALLOC\tSTAKED\tLAST BLOCK\tACC/SHARE")
		for pid := range n {
			p, err := c.PoolInfo(pid)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%d\t%v\t%d\t%v\t%d\t%v\n", pid, p.StakeToken, p.AllocPoint, p.TotalStaked, p.LastRewardBlock, p.AccRewardPerShare)
		}
		return tw.Flush()
	})
}
