// Package web serves the storefront pages, their JSON mirrors and the
// operational endpoints over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"record-storefront/internal/chain"
	"record-storefront/internal/domain"
	"record-storefront/internal/logging"
	"record-storefront/internal/observability"
	"record-storefront/internal/storefront"
)

// AccountCookie holds the connected wallet address.
const AccountCookie = "wallet_account"

// MintSubmitter starts mints on behalf of the connected account.
type MintSubmitter interface {
	Submit(ctx context.Context, rec, account common.Address) (*domain.MintSubmission, error)
	PendingCount() int
}

// Options configures a Server.
type Options struct {
	Storefront *storefront.Storefront
	Mints      MintSubmitter
	// Chain, if set, reports the latest block on /status.
	Chain chain.RPCClient
	Log   *logrus.Entry
	Now   func() time.Time
}

// Server is the storefront HTTP server.
type Server struct {
	sf    *storefront.Storefront
	mints MintSubmitter
	chain chain.RPCClient
	log   *logrus.Entry
	now   func() time.Time
	tmpl  map[string]*template.Template

	started time.Time

	mu       sync.Mutex
	requests int64
}

// NewServer creates a Server. It fails only if the embedded templates do not parse.
func NewServer(opts Options) (*Server, error) {
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		sf:      opts.Storefront,
		mints:   opts.Mints,
		chain:   opts.Chain,
		log:     opts.Log,
		now:     opts.Now,
		tmpl:    tmpl,
		started: opts.Now(),
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleStore)
	mux.HandleFunc("GET /my-records", s.handleMyRecords)
	mux.HandleFunc("GET /buy-record/{address}", s.handleBuy)
	mux.HandleFunc("POST /buy-record/{address}/mint", s.handleMint)
	mux.HandleFunc("GET /owner/{address}/{tokenId}", s.handleOwner)
	mux.HandleFunc("GET /owner/{address}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/my-records", http.StatusFound)
	})

	mux.HandleFunc("GET /card/{address}/image", s.handleCardImage)
	mux.HandleFunc("GET /card/{address}/{tokenId}/image", s.handleCardImage)

	mux.HandleFunc("GET /api/records", s.handleAPIRecords)
	mux.HandleFunc("GET /api/my-records", s.handleAPIMyRecords)
	mux.HandleFunc("GET /api/buy-record/{address}", s.handleAPIBuy)
	mux.HandleFunc("GET /api/owner/{address}/{tokenId}", s.handleAPIOwner)

	mux.HandleFunc("POST /session/account", s.handleConnect)
	mux.HandleFunc("POST /session/disconnect", s.handleDisconnect)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", observability.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFiles())))

	mux.HandleFunc("/", s.notFound)

	return s.logRequests(mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.mu.Lock()
		s.requests++
		s.mu.Unlock()

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}
