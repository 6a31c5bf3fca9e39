// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api serves a read-only view of the farm over http.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/farm/api/events"
	"github.com/vechain/farm/api/pools"
	"github.com/vechain/farm/api/subscriptions"
	"github.com/vechain/farm/eventdb"
	"github.com/vechain/farm/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	LogsLimit       uint64
	EnableMetrics   bool
	EnableReqLogger bool
}

// New return api router
func New(
	viewer pools.Viewer,
	eventDB *eventdb.EventDB,
	source subscriptions.Source,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	pools.New(viewer).
		Mount(router, "/chef")
	events.New(eventDB, opts.LogsLimit).
		Mount(router, "/logs/event")
	subs := subscriptions.New(source, origins)
	subs.Mount(router, "/subscriptions")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.ExposedHeaders([]string{"x-subscription-id"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
