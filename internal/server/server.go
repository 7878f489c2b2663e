// Package server orchestrates all components: COMMS transport, chat routes, error sinks, audit DB, HTTP and gRPC health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"

	"github.com/morezero/comms-transport/internal/config"
	"github.com/morezero/comms-transport/pkg/audit"
	"github.com/morezero/comms-transport/pkg/chat"
	"github.com/morezero/comms-transport/pkg/events"
	"github.com/morezero/comms-transport/pkg/transport"
)

const logPrefix = "server:server"

// connState reports the COMMS connection state.
type connState interface {
	IsConnected() bool
}

// pinger checks the audit database.
type pinger interface {
	Ping(ctx context.Context) error
}

// recentLister lists recorded error replies.
type recentLister interface {
	Recent(ctx context.Context, limit int) ([]*audit.Record, error)
}

// groupCounter reports the number of stored chat groups.
type groupCounter interface {
	Len() int
}

// Server is the comms-transport orchestrator.
type Server struct {
	cfg        *config.Config
	conn       connState
	db         pinger
	audit      recentLister
	groups     groupCounter
	httpServer *http.Server
	grpcServer *grpc.Server
}

// HealthChecks holds the individual health checks. Database is omitted when auditing is off.
type HealthChecks struct {
	Comms    bool  `json:"comms"`
	Database *bool `json:"database,omitempty"`
}

// HealthOutput is the /health response body.
type HealthOutput struct {
	Status    string       `json:"status"`
	Service   string       `json:"service"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s - invalid config: %w", logPrefix, err)
	}
	version, err := cfg.Version()
	if err != nil {
		return fmt.Errorf("%s - invalid envelope version: %w", logPrefix, err)
	}
	accept, err := cfg.Accept()
	if err != nil {
		return fmt.Errorf("%s - invalid envelope constraint: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Starting %s (envelope %s, codec %s)", logPrefix, cfg.ServiceDomain, version, cfg.Codec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Connect to COMMS
	srv, err := transport.Connect(cfg.COMMSURL, &transport.Options{Service: cfg.ServiceDomain, Name: cfg.COMMSName, EnvelopeVersion: version})
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.conn = srv
	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, cfg.COMMSURL))

	// Step 2: Error events
	publisher := events.NewCommsPublisher(srv.Conn(), &events.CommsPublisherOpts{Subject: cfg.ErrorEventSubject})
	srv.OnError(events.Sink(publisher, cfg.ServiceDomain))

	// Step 3: Optional error audit
	var pool *pgxpool.Pool
	if cfg.AuditEnabled {
		pool, err = openAudit(ctx, cfg)
		if err != nil {
			srv.Close()
			return err
		}
		store := audit.NewStore(pool)
		srv.OnError(store.Sink(cfg.ServiceDomain))
		s.db = pool
		s.audit = store
		slog.Info(fmt.Sprintf("%s - Error audit enabled", logPrefix))
	}

	// Step 4: Chat routes
	svc := chat.NewService(&chat.ServiceOpts{Service: cfg.ServiceDomain, Domain: cfg.ErrorDomain})
	s.groups = svc
	err = chat.Register(ctx, srv, svc, chat.RouteOpts{
		Codec:   cfg.Codec,
		Queue:   cfg.QueueGroup,
		Timeout: cfg.RequestTimeout,
		Accept:  accept,
	})
	if err != nil {
		closeAll(srv, pool)
		return fmt.Errorf("%s - failed to register chat routes: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Serving %s and %s", logPrefix, chat.SubjectCreate, chat.SubjectGet))

	// Step 5: Start HTTP health server
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	// Step 6: Start gRPC health server
	if cfg.GRPCPort > 0 {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			s.httpServer.Close()
			closeAll(srv, pool)
			return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, grpcAddr, err)
		}
		s.grpcServer = s.newGRPCServer()
		go func() {
			slog.Info(fmt.Sprintf("%s - gRPC health server listening on %s", logPrefix, grpcAddr))
			if err := s.grpcServer.Serve(lis); err != nil {
				slog.Error(fmt.Sprintf("%s - gRPC server error: %v", logPrefix, err))
			}
		}()
	}

	slog.Info(fmt.Sprintf("%s - %s is ready", logPrefix, cfg.COMMSName))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.HealthCheckTimeout)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if err := srv.Drain(); err != nil {
		slog.Warn(fmt.Sprintf("%s - drain subscriptions: %v", logPrefix, err))
	}
	closeAll(srv, pool)

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// openAudit prepares the audit database: create it if missing, connect, migrate.
func openAudit(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := cfg.ValidateForDB(); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if err := audit.EnsureDatabase(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("%s - failed to ensure audit database: %w", logPrefix, err)
	}
	pool, err := audit.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to audit database: %w", logPrefix, err)
	}
	if err := audit.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to run audit migrations: %w", logPrefix, err)
	}
	return pool, nil
}

func closeAll(srv *transport.Server, pool *pgxpool.Pool) {
	srv.Close()
	if pool != nil {
		pool.Close()
	}
}

// routes builds the HTTP mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	mux.HandleFunc("/errors", s.handleErrors())
	return mux
}

// Health runs the checks within ctx.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Service:   s.cfg.ServiceDomain,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	out.Checks.Comms = s.conn != nil && s.conn.IsConnected()
	healthy := out.Checks.Comms
	if s.db != nil {
		ok := s.db.Ping(ctx) == nil
		out.Checks.Database = &ok
		healthy = healthy && ok
	}
	out.Status = "healthy"
	if !healthy {
		out.Status = "unhealthy"
	}
	return out
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.Health(ctx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.conn == nil || !s.conn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

// handleErrors lists recorded error replies as JSON. The limit query parameter caps the result.
func (s *Server) handleErrors() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.audit == nil {
			http.Error(w, "error audit is disabled", http.StatusNotFound)
			return
		}
		limit := audit.DefaultRecentLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		records, err := s.audit.Recent(ctx, limit)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - list recent errors: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}

// homePageTemplate is the HTML for the service home page.
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Health.Service}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 1100px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>{{.Health.Service}}</h1>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>COMMS: {{if .Health.Checks.Comms}}<span class="stat">OK</span>{{else}}<span class="error">Disconnected</span>{{end}}</p>
    {{if .Database}}<p>Database: {{if eq .Database "OK"}}<span class="stat">OK</span>{{else}}<span class="error">{{.Database}}</span>{{end}}</p>{{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Statistics</h2>
    <p>Envelope version: <span class="stat">{{.EnvelopeVersion}}</span> ({{.Codec}})</p>
    <p>Chat groups: <span class="stat">{{.Groups}}</span></p>
  </section>

  <section>
    <h2>Recent errors</h2>
    {{if not .AuditEnabled}}
    <p>Error audit is disabled.</p>
    {{else if .AuditError}}
    <p class="error">Could not load recent errors: {{.AuditError}}</p>
    {{else if not .Recent}}
    <p>No errors recorded.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Time</th><th>Subject</th><th>Status</th><th>Code</th><th>Message</th><th>Reasons</th></tr>
      </thead>
      <tbody>
        {{range .Recent}}
        <tr>
          <td>{{.Created.Format "2006-01-02 15:04:05"}}</td>
          <td>{{.Subject}}</td>
          <td>{{.Reply.Status}}</td>
          <td>{{.Reply.Code}}</td>
          <td>{{.Reply.Message}}</td>
          <td>{{range .Reply.Details}}{{.Reason}} ({{.Domain}}) {{end}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeRecentLimit caps the errors shown on the home page.
const homeRecentLimit = 20

// homeData is the data passed to the home page template.
type homeData struct {
	Health          *HealthOutput
	Database        string
	EnvelopeVersion string
	Codec           string
	Groups          int
	AuditEnabled    bool
	Recent          []*audit.Record
	AuditError      string
}

// handleHome returns an HTTP handler for the service home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health:          s.Health(ctx),
			EnvelopeVersion: s.cfg.EnvelopeVersion,
			Codec:           s.cfg.Codec,
			AuditEnabled:    s.audit != nil,
		}
		if db := data.Health.Checks.Database; db != nil {
			data.Database = "Failed"
			if *db {
				data.Database = "OK"
			}
		}
		if s.groups != nil {
			data.Groups = s.groups.Len()
		}
		if s.audit != nil {
			recent, err := s.audit.Recent(ctx, homeRecentLimit)
			if err != nil {
				data.AuditError = err.Error()
			} else {
				data.Recent = recent
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
