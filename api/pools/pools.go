// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/core"
)

// Viewer runs read-only queries against the engine as of the head block.
type Viewer interface {
	View(fn func(c *chef.Chef, head uint32) error) error
}

type Pools struct {
	viewer Viewer
}

func New(viewer Viewer) *Pools {
	return &Pools{viewer}
}

func (p *Pools) handleGetChef(w http.ResponseWriter, _ *http.Request) error {
	var result *Chef
	err := p.viewer.View(func(c *chef.Chef, head uint32) error {
		owner, err := c.Owner()
		if err != nil {
			return err
		}
		dev, err := c.Dev()
		if err != nil {
			return err
		}
		migrator, err := c.Migrator()
		if err != nil {
			return err
		}
		sched, err := c.Schedule()
		if err != nil {
			return err
		}
		total, err := c.TotalAllocPoint()
		if err != nil {
			return err
		}
		length, err := c.PoolLength()
		if err != nil {
			return err
		}
		result = convertChef(c.Address(), c.RewardToken(), owner, dev, migrator, sched, total, length, head)
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (p *Pools) handleGetPools(w http.ResponseWriter, _ *http.Request) error {
	var result []*Pool
	err := p.viewer.View(func(c *chef.Chef, _ uint32) error {
		n, err := c.PoolLength()
		if err != nil {
			return err
		}
		result = make([]*Pool, 0, n)
		for pid := range n {
			info, err := c.PoolInfo(pid)
			if err != nil {
				return err
			}
			result = append(result, convertPool(pid, info))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (p *Pools) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	pid, err := parsePid(mux.Vars(req)["pid"])
	if err != nil {
		return err
	}
	var result *Pool
	err = p.viewer.View(func(c *chef.Chef, _ uint32) error {
		info, err := c.PoolInfo(pid)
		if err != nil {
			return err
		}
		result = convertPool(pid, info)
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func (p *Pools) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	pid, err := parsePid(mux.Vars(req)["pid"])
	if err != nil {
		return err
	}
	addr, err := core.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	blockParam := req.URL.Query().Get("block")

	var result *Account
	err = p.viewer.View(func(c *chef.Chef, head uint32) error {
		block, err := utils.ParseUint32(blockParam, head)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "block"))
		}
		if block < head {
			return utils.BadRequest(errors.New("block: must not precede the head"))
		}
		acc, err := c.UserInfo(pid, *addr)
		if err != nil {
			return err
		}
		pending, err := c.PendingReward(block, pid, *addr)
		if err != nil {
			return err
		}
		result = convertAccount(pid, *addr, acc, pending, block)
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, result)
}

func parsePid(s string) (uint64, error) {
	pid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "pid"))
	}
	return pid, nil
}

func (p *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /chef").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetChef))
	sub.Path("/pools").
		Methods(http.MethodGet).
		Name("GET /chef/pools").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPools))
	sub.Path("/pools/{pid}").
		Methods(http.MethodGet).
		Name("GET /chef/pools/{pid}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPool))
	sub.Path("/pools/{pid}/accounts/{address}").
		Methods(http.MethodGet).
		Name("GET /chef/pools/{pid}/accounts/{address}").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetAccount))
}
