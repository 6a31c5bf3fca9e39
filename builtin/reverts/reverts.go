// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a revert.
type Kind uint8

const (
	// Failed is any other require-style failure.
	Failed Kind = iota
	// Unauthorized means the caller does not hold the required role.
	Unauthorized
	// InsufficientBalance means a withdrawal or transfer exceeds what is held.
	InsufficientBalance
	// InvalidPool means the pool index or stake token does not identify a usable pool.
	InvalidPool
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case InsufficientBalance:
		return "insufficient balance"
	case InvalidPool:
		return "invalid pool"
	default:
		return "failed"
	}
}

// ErrRevert is a user facing failure. The operation that returned it left no state change.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		kind:    Failed,
		message: message,
	}
}

func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
	}
}

func NewUnauthorized(message string) *ErrRevert {
	return &ErrRevert{kind: Unauthorized, message: message}
}

func NewInsufficientBalance(message string) *ErrRevert {
	return &ErrRevert{kind: InsufficientBalance, message: message}
}

func NewInvalidPool(message string) *ErrRevert {
	return &ErrRevert{kind: InvalidPool, message: message}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func IsRevertErr(err any) bool {
	_, ok := asRevert(err)
	return ok
}

func IsUnauthorized(err error) bool {
	e, ok := asRevert(err)
	return ok && e.kind == Unauthorized
}

func IsInsufficientBalance(err error) bool {
	e, ok := asRevert(err)
	return ok && e.kind == InsufficientBalance
}

func IsInvalidPool(err error) bool {
	e, ok := asRevert(err)
	return ok && e.kind == InvalidPool
}

func asRevert(err any) (*ErrRevert, bool) {
	if err == nil {
		return nil, false
	}
	e, ok := err.(error)
	if !ok {
		return nil, false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) {
		return ve, true
	}
	return nil, false
}
