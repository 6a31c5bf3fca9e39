// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	revert := New("test")
	assert.Equal(t, "test", revert.message)
	assert.Equal(t, revert.Error(), revert.message)
	assert.Equal(t, Failed, revert.Kind())

	assert.True(t, IsRevertErr(revert))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
}

func Test_Kinds(t *testing.T) {
	tests := []struct {
		err                 error
		unauthorized        bool
		insufficientBalance bool
		invalidPool         bool
	}{
		{NewUnauthorized("dev: wut?"), true, false, false},
		{NewInsufficientBalance("withdraw: not good"), false, true, false},
		{NewInvalidPool("pool not found"), false, false, true},
		{Newf(InvalidPool, "pool %d not found", 3), false, false, true},
		{New("already initialized"), false, false, false},
		{errors.WithMessage(NewUnauthorized("not owner"), "add pool"), true, false, false},
		{fmt.Errorf("plain"), false, false, false},
		{nil, false, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.unauthorized, IsUnauthorized(tt.err))
		assert.Equal(t, tt.insufficientBalance, IsInsufficientBalance(tt.err))
		assert.Equal(t, tt.invalidPool, IsInvalidPool(tt.err))
	}

	assert.Equal(t, "pool 3 not found", Newf(InvalidPool, "pool %d not found", 3).Error())
	assert.Equal(t, "invalid pool", InvalidPool.String())
	assert.Equal(t, "failed", Failed.String())
}
