// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/metrics"
)

var logger = log.WithContext("pkg", "admin")

// HTTPHandler serves the log level, the health of the active cycle and the log entry feed.
func HTTPHandler(logLevel *slog.LevelVar, status StatusReader, feed *Feed) http.Handler {
	router := mux.NewRouter()
	router.Handle("/admin/loglevel", handlers.CompressHandler(logLevelHandler(logLevel)))
	router.Handle("/admin/health", handlers.CompressHandler(healthHandler(status))).Methods(http.MethodGet)
	if feed != nil {
		router.HandleFunc("/admin/subscriptions/log", feed.handleSubscribe).Methods(http.MethodGet)
	}
	return router
}

// MetricsHandler serves the metrics under /metrics.
func MetricsHandler() http.Handler {
	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	return handlers.CompressHandler(router)
}

// StartServer serves handler on addr. It returns the base url and the function that stops it.
func StartServer(addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen addr [%v]", addr)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes sync.WaitGroup
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String(), func() {
		srv.Close()
		goes.Wait()
	}, nil
}
