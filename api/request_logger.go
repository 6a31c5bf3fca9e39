// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/vechain/farm/log"
)

// maxLoggedBody caps the logged part of a request body.
const maxLoggedBody = 1024

// RequestLoggerHandler logs every request once served, with its body, status and duration.
func RequestLoggerHandler(handler http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			b, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Warn("failed to read request body", "uri", r.URL.String(), "err", err)
				http.Error(w, "unreadable body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(b))
			body = b
		}

		start := time.Now()
		rec := newMetricsResponseWriter(w)
		handler.ServeHTTP(rec, r)

		if len(body) > maxLoggedBody {
			body = append(body[:maxLoggedBody:maxLoggedBody], "..."...)
		}
		logger.Info("API request",
			"method", r.Method,
			"uri", r.URL.String(),
			"remote", r.RemoteAddr,
			"status", rec.statusCode,
			"elapsed", time.Since(start),
			"body", string(body),
		)
	})
}
