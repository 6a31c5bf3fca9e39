// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/farm/api"
	"github.com/vechain/farm/cmd/farm/node"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "farm")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Farm",
		Usage:   "Staking reward distribution engine",
		Flags: []cli.Flag{
			scenarioFlag,
			dataDirFlag,
			cacheFlag,
			verbosityFlag,
			jsonLogsFlag,
		},
		Action: replayAction,
		Commands: []cli.Command{
			{
				Name:  "serve",
				Usage: "Replay a scenario while serving the farm over http",
				Flags: []cli.Flag{
					scenarioFlag,
					dataDirFlag,
					cacheFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiLogsLimitFlag,
					enableAPILogsFlag,
					blockIntervalFlag,
					verbosityFlag,
					jsonLogsFlag,
					enableMetricsFlag,
					metricsAddrFlag,
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func replayAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	sc, err := loadScenario(ctx)
	if err != nil {
		return err
	}
	dbs, err := openDatabases(ctx, sc)
	if err != nil {
		return err
	}
	defer dbs.Close()

	n, err := node.New(sc, dbs.main, dbs.events)
	if err != nil {
		return err
	}
	defer n.Close()

	blocks := sc.Blocks()
	if len(blocks) == 0 {
		return printSummary(os.Stdout, n)
	}
	last := blocks[len(blocks)-1][0].Block
	bar := pb.New64(int64(last)).
		Set64(int64(n.Head())).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	exitCtx, stop := handleExitSignal()
	defer stop()
	if err := n.Replay(exitCtx, func(blockNum uint32) { bar.Set64(int64(blockNum)) }); err != nil {
		return err
	}
	bar.Finish()
	return printSummary(os.Stdout, n)
}

func serveAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
	sc, err := loadScenario(ctx)
	if err != nil {
		return err
	}
	dbs, err := openDatabases(ctx, sc)
	if err != nil {
		return err
	}
	defer dbs.Close()

	n, err := node.New(sc, dbs.main, dbs.events)
	if err != nil {
		return err
	}
	defer n.Close()

	handler, closeAPI := api.New(n, dbs.events, n, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		LogsLimit:       ctx.Uint64(apiLogsLimitFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
	})

	exitCtx, stop := handleExitSignal()
	defer stop()
	g, gctx := errgroup.WithContext(exitCtx)

	apiSrv, err := startServer(g, ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	logger.Info("API server started", "url", "http://"+apiSrv.Addr+"/")

	servers := []*server{apiSrv}
	if ctx.Bool(enableMetricsFlag.Name) {
		metricsSrv, err := startServer(g, ctx.String(metricsAddrFlag.Name), metrics.HTTPHandler())
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "url", "http://"+metricsSrv.Addr+"/metrics")
		servers = append(servers, metricsSrv)
	}

	interval := ctx.Duration(blockIntervalFlag.Name)
	g.Go(func() error {
		err := n.Replay(gctx, func(blockNum uint32) {
			logger.Info("block replayed", "block", blockNum)
			if interval > 0 {
				select {
				case <-gctx.Done():
				case <-time.After(interval):
				}
			}
		})
		if err != nil && gctx.Err() == nil {
			return err
		}
		logger.Info("replay done", "head", n.Head())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping API server...")
		closeAPI()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			srv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}
