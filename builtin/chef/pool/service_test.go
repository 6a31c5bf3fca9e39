// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/lvldb"
	"github.com/vechain/farm/state"
)

func newService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(solidity.NewContext(core.BytesToAddress([]byte("chef")), state.New(db)))
}

func TestService(t *testing.T) {
	svc := newService(t)
	lp2 := core.BytesToAddress([]byte("lp2"))

	n, err := svc.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	_, err = svc.Get(0)
	assert.True(t, reverts.IsInvalidPool(err))

	pid, err := svc.Append(New(lp, 100, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pid)
	pid, err = svc.Append(New(lp2, 50, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pid)

	_, err = svc.Append(New(lp, 10, 0, 0))
	assert.True(t, reverts.IsInvalidPool(err))

	got, ok, err := svc.Lookup(lp2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), got)

	p, err := svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, lp2, p.StakeToken)
	assert.Equal(t, uint64(50), p.AllocPoint)

	p.TotalStaked = big.NewInt(42)
	require.NoError(t, svc.Set(1, p))
	p, err = svc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.TotalStaked.Int64())

	require.NoError(t, svc.Reweight(0, 100))
	require.NoError(t, svc.Reweight(0, 50))
	require.NoError(t, svc.Reweight(50, 20))
	total, err := svc.TotalAllocPoint()
	require.NoError(t, err)
	assert.Equal(t, uint64(120), total)

	err = svc.Reweight(121, 0)
	assert.Error(t, err, "more weight removed than registered")
	assert.False(t, reverts.IsRevertErr(err))

	err = svc.Reweight(0, math.MaxUint64)
	assert.True(t, reverts.IsRevertErr(err))
	assert.ErrorContains(t, err, "overflow")
	require.NoError(t, svc.Reweight(20, math.MaxUint64-100))
	total, err = svc.TotalAllocPoint()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), total)
}

func TestServiceRebind(t *testing.T) {
	svc := newService(t)
	lp2 := core.BytesToAddress([]byte("lp2"))
	lp3 := core.BytesToAddress([]byte("lp3"))

	_, err := svc.Append(New(lp, 1, 0, 0))
	require.NoError(t, err)
	_, err = svc.Append(New(lp2, 1, 0, 0))
	require.NoError(t, err)

	assert.True(t, reverts.IsInvalidPool(svc.Rebind(0, lp, lp2)))

	require.NoError(t, svc.Rebind(0, lp, lp3))
	_, ok, err := svc.Lookup(lp)
	require.NoError(t, err)
	assert.False(t, ok)

	pid, ok, err := svc.Lookup(lp3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), pid)
}
