// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/farm/cmd/farm/node"
	"github.com/vechain/farm/cmd/farm/scenario"
)

const farming = "scenario/testdata/farming.yaml"

func newContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range []cli.Flag{scenarioFlag, dataDirFlag, cacheFlag, verbosityFlag, jsonLogsFlag} {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

func TestLoadScenario(t *testing.T) {
	_, err := loadScenario(newContext(t))
	assert.ErrorContains(t, err, "missing required flag --scenario")

	_, err = loadScenario(newContext(t, "--scenario", "missing.yaml"))
	assert.ErrorContains(t, err, "load scenario 'missing.yaml'")

	sc, err := loadScenario(newContext(t, "--scenario", farming))
	require.NoError(t, err)
	assert.NotEmpty(t, sc.Steps)
}

func TestInstanceDir(t *testing.T) {
	sc, err := scenario.Load(farming)
	require.NoError(t, err)

	dir := instanceDir("/data", sc)
	assert.Equal(t, "/data", filepath.Dir(dir))
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "instance-"))
	assert.Len(t, filepath.Base(dir), len("instance-")+16)
	assert.Equal(t, dir, instanceDir("/data", sc))
}

func TestReplayPersisted(t *testing.T) {
	dataDir := t.TempDir()
	ctx := newContext(t, "--scenario", farming, "--data-dir", dataDir)
	sc, err := loadScenario(ctx)
	require.NoError(t, err)

	dbs, err := openDatabases(ctx, sc)
	require.NoError(t, err)
	n, err := node.New(sc, dbs.main, dbs.events)
	require.NoError(t, err)
	require.NoError(t, n.Replay(context.Background(), nil))
	n.Close()
	dbs.Close()

	assert.DirExists(t, filepath.Join(instanceDir(dataDir, sc), "main.db"))
	assert.FileExists(t, filepath.Join(instanceDir(dataDir, sc), "events.db"))

	// reopened instance resumes at the persisted head
	dbs, err = openDatabases(ctx, sc)
	require.NoError(t, err)
	defer dbs.Close()
	n, err = node.New(sc, dbs.main, dbs.events)
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, uint32(360), n.Head())

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, n))
	out := buf.String()
	assert.Contains(t, out, "head:       360")
	assert.Contains(t, out, "pools:      1")
	assert.Contains(t, out, "STAKE TOKEN")
}

func TestStartServer(t *testing.T) {
	var g errgroup.Group
	srv, err := startServer(&g, "localhost:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	require.NoError(t, err)

	res, err := http.Get("http://" + srv.Addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, g.Wait())
}
