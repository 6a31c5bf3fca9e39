// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events_test

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/api/events"
	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/eventdb"
)

var (
	bob   = core.BytesToAddress([]byte("bob"))
	carol = core.BytesToAddress([]byte("carol"))
)

const limit = 5

func newServer(t *testing.T) *httptest.Server {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for block := uint32(1); block <= 4; block++ {
		require.NoError(t, db.Prepare(block).Insert(
			&chef.Event{Kind: chef.EventDeposit, Pool: 0, Account: bob, Amount: big.NewInt(int64(block))},
			&chef.Event{Kind: chef.EventHarvest, Pool: 1, Account: carol, Amount: big.NewInt(10)},
		).Commit())
	}

	router := mux.NewRouter()
	events.New(db, limit).Mount(router, "/logs/event")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body any) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return out, res.StatusCode
}

func TestFilter(t *testing.T) {
	ts := newServer(t)
	from, to := uint32(2), uint32(3)
	pid := uint64(0)

	body, status := post(t, ts.URL+"/logs/event", &events.EventFilter{
		Range: &events.Range{From: &from, To: &to},
		Pool:  &pid,
		Order: eventdb.DESC,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var got []*events.FilteredEvent
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, uint32(3), got[0].BlockNumber)
	assert.Equal(t, uint32(2), got[1].BlockNumber)
	assert.Equal(t, chef.EventDeposit, got[0].Kind)
	assert.Equal(t, chef.EventDeposit.Topic(), got[0].Topic)
	assert.Equal(t, bob, got[0].Account)
	assert.Equal(t, big.NewInt(3), (*big.Int)(got[0].Amount))
}

func TestFilterOpenRange(t *testing.T) {
	ts := newServer(t)
	from := uint32(3)

	body, status := post(t, ts.URL+"/logs/event", &events.EventFilter{
		Range:   &events.Range{From: &from},
		Account: &carol,
		Kinds:   []chef.EventKind{chef.EventHarvest},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var got []*events.FilteredEvent
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.Equal(t, chef.EventHarvest, ev.Kind)
		assert.Equal(t, uint32(1), ev.Index)
		require.NotNil(t, ev.Pool)
		assert.Equal(t, uint64(1), *ev.Pool)
	}
}

func TestFilterEmpty(t *testing.T) {
	ts := newServer(t)
	pid := uint64(9)

	body, status := post(t, ts.URL+"/logs/event", &events.EventFilter{Pool: &pid})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `[]`, string(body))
}

func TestFilterLimits(t *testing.T) {
	ts := newServer(t)

	// 8 events match, more than the limit
	_, status := post(t, ts.URL+"/logs/event", &events.EventFilter{})
	assert.Equal(t, http.StatusForbidden, status)

	_, status = post(t, ts.URL+"/logs/event", &events.EventFilter{Options: &events.Options{Limit: limit + 1}})
	assert.Equal(t, http.StatusForbidden, status)

	body, status := post(t, ts.URL+"/logs/event", &events.EventFilter{Options: &events.Options{Offset: 6, Limit: limit}})
	require.Equal(t, http.StatusOK, status, string(body))
	var got []*events.FilteredEvent
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got, 2)
}

func TestFilterBadRequest(t *testing.T) {
	ts := newServer(t)
	from, to := uint32(5), uint32(3)

	tests := []struct {
		name string
		body any
	}{
		{"reversed range", &events.EventFilter{Range: &events.Range{From: &from, To: &to}}},
		{"unknown kind", &events.EventFilter{Kinds: []chef.EventKind{"Rug"}}},
		{"bad order", &events.EventFilter{Order: "up"}},
		{"unknown field", map[string]any{"foo": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, status := post(t, ts.URL+"/logs/event", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestMatches(t *testing.T) {
	pid := uint64(1)
	ev := &eventdb.Event{Kind: chef.EventHarvest, Pool: &pid, Account: carol}
	setDev := &eventdb.Event{Kind: chef.EventSetDev, Account: carol}

	var none *events.EventFilter
	assert.True(t, none.Matches(ev))
	assert.True(t, (&events.EventFilter{Pool: &pid}).Matches(ev))
	assert.False(t, (&events.EventFilter{Pool: &pid}).Matches(setDev))
	assert.False(t, (&events.EventFilter{Account: &bob}).Matches(ev))
	assert.True(t, (&events.EventFilter{Kinds: []chef.EventKind{chef.EventDeposit, chef.EventHarvest}}).Matches(ev))
	assert.False(t, (&events.EventFilter{Kinds: []chef.EventKind{chef.EventDeposit}}).Matches(ev))
}
