// Package httpapi is the gateway's HTTP surface: a single `POST *` route
// accepting JSON-RPC envelopes (spec §6). The listener lifecycle itself —
// flag parsing, graceful shutdown signal wiring, container entrypoint —
// is an external-collaborator concern per §1; this package only builds
// the *http.Server and the errgroup-wrapped start/stop pair the launcher
// calls, grounded on the teacher's StartJSONRPC (server/json_rpc.go).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/witnet/ethrpc-gateway/internal/envelope"
	"github.com/witnet/ethrpc-gateway/internal/gwlog"
	"github.com/witnet/ethrpc-gateway/internal/router"
)

// Options configures the HTTP server (§6 "HTTP surface").
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func DefaultOptions(addr string) Options {
	return Options{
		Addr:         addr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// New builds the *http.Server wired to r.Handle. CORS is allow-all (§6);
// status is always 200, JSON-RPC errors travel in the body.
func New(opts Options, r *router.Router, logger *gwlog.Logger) *http.Server {
	mx := mux.NewRouter()
	mx.HandleFunc("/", newHandlerFunc(r, logger)).Methods(http.MethodPost)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           cors.AllowAll().Handler(mx),
		ReadHeaderTimeout: opts.ReadTimeout,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
}

func newHandlerFunc(r *router.Router, logger *gwlog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var in envelope.Request
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			logger.Warn("malformed request body", "error", err.Error())
			writeJSON(w, envelope.NewError(nil, -32700, "parse error", nil))
			return
		}

		resp := r.Handle(req.Context(), &in)
		writeJSON(w, resp)
	}
}

func writeJSON(w http.ResponseWriter, resp *envelope.Response) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// Serve runs srv until ctx is canceled, then gracefully shuts it down —
// the same errgroup-driven start/stop shape as the teacher's
// StartJSONRPC, minus the Tendermint websocket bridge and indexer wiring
// this gateway has no analogue for.
func Serve(ctx context.Context, g *errgroup.Group, srv *http.Server, logger *gwlog.Logger) {
	g.Go(func() error {
		logger.Info("starting HTTP server", "address", srv.Addr)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case <-ctx.Done():
			logger.Info("stopping HTTP server", "address", srv.Addr)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down HTTP server", "error", err.Error())
				return err
			}
			return nil
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed", "error", err.Error())
				return err
			}
			return nil
		}
	})
}
