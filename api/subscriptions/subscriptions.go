// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/vechain/farm/api/events"
	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/eventdb"
	"github.com/vechain/farm/log"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 7 / 10
)

// Source publishes the events of every committed block.
type Source interface {
	SubscribeEvents(ch chan []*eventdb.Event) event.Subscription
}

type Subscriptions struct {
	source   Source
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	closing  bool
}

func New(source Source, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		source: source,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

func parseFilter(q url.Values) (*events.EventFilter, error) {
	var f events.EventFilter
	if s := q.Get("pool"); s != "" {
		pid, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errors.WithMessage(err, "pool")
		}
		f.Pool = &pid
	}
	if s := q.Get("account"); s != "" {
		addr, err := core.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "account")
		}
		f.Account = addr
	}
	for _, s := range q["kind"] {
		for _, k := range strings.Split(s, ",") {
			f.Kinds = append(f.Kinds, chef.EventKind(strings.TrimSpace(k)))
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseFilter(req.URL.Query())
	if err != nil {
		return utils.BadRequest(err)
	}

	if !s.enter() {
		return utils.HTTPError(errors.New("service closed"), http.StatusServiceUnavailable)
	}
	defer s.wg.Done()

	id := uuid.New()
	conn, err := s.upgrader.Upgrade(w, req, http.Header{"X-Subscription-Id": {id}})
	if err != nil {
		// the upgrader has responded already
		logger.Debug("upgrade failed", "id", id, "err", err)
		return nil
	}
	logger.Debug("subscribed", "id", id, "remote", req.RemoteAddr)

	if err := s.pipe(conn, filter); err != nil {
		logger.Debug("subscription closed", "id", id, "err", err)
	} else {
		logger.Debug("subscription closed", "id", id)
	}
	return nil
}

// pipe streams matching events to conn until the peer leaves or the service closes.
func (s *Subscriptions) pipe(conn *websocket.Conn, filter *events.EventFilter) error {
	ch := make(chan []*eventdb.Event, 16)
	sub := s.source.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	var reader sync.WaitGroup
	defer func() {
		conn.Close()
		reader.Wait()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	closed := make(chan struct{})
	reader.Go(func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case evs := <-ch:
			for _, ev := range evs {
				if !filter.Matches(ev) {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(events.ConvertEvent(ev)); err != nil {
					return err
				}
			}
		case err := <-sub.Err():
			return err
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "service closed")
			return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
	}
}

// enter registers a subscription, unless Close has begun.
func (s *Subscriptions) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

// Close ends every open subscription and waits for them to finish.
func (s *Subscriptions) Close() {
	s.mu.Lock()
	if !s.closing {
		s.closing = true
		close(s.done)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/event").
		Methods(http.MethodGet).
		Name("WS /subscriptions/event").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
