// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package core

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	// Scale is the fixed-point precision of per-share accumulators.
	Scale = big.NewInt(1e12)
	Big0  = new(big.Int)
	Big1  = big.NewInt(1)
)

var (
	ErrOverflow       = errors.New("uint256 overflow")
	ErrNegative       = errors.New("negative operand")
	ErrDivisionByZero = errors.New("division by zero")
)

// MulDiv returns floor(x*y/d). The product is kept in a 512-bit intermediate,
// so only a quotient that does not fit in 256 bits overflows.
func MulDiv(x, y, d *big.Int) (*big.Int, error) {
	if d.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	ux, err := toUint256(x)
	if err != nil {
		return nil, err
	}
	uy, err := toUint256(y)
	if err != nil {
		return nil, err
	}
	ud, err := toUint256(d)
	if err != nil {
		return nil, err
	}
	z, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud)
	if overflow {
		return nil, ErrOverflow
	}
	return z.ToBig(), nil
}

// Scaled returns amount*perShare/Scale.
func Scaled(amount, perShare *big.Int) (*big.Int, error) {
	return MulDiv(amount, perShare, Scale)
}

func toUint256(x *big.Int) (*uint256.Int, error) {
	if x == nil {
		return new(uint256.Int), nil
	}
	if x.Sign() < 0 {
		return nil, ErrNegative
	}
	u, overflow := uint256.FromBig(x)
	if overflow {
		return nil, ErrOverflow
	}
	return u, nil
}
