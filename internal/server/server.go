// Package server is the companion HTTP server of the design plugin. It exposes
// the scan operations as JSON routes and as MCP tools, relays upload messages
// between the plugin and the upload broker, and accepts reconfiguration.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/v0xg/uxspec/internal/app"
	"github.com/v0xg/uxspec/internal/config"
	"github.com/v0xg/uxspec/internal/figma"
	"github.com/v0xg/uxspec/internal/scanner"
	"github.com/v0xg/uxspec/internal/upload"
	"github.com/v0xg/uxspec/internal/webhook"
)

// Name identifies the server in ping and MCP handshakes
const Name = "uxspec"

// Builder creates the collaborators of a configuration
type Builder func(cfg *config.Config) (*app.Deps, error)

// Options configures a Server
type Options struct {
	Version string
	Logger  *slog.Logger
	Clock   func() time.Time
	// PollWait bounds how long GET /plugin/messages waits for work
	PollWait time.Duration
}

// Server serves the companion routes. Collaborators are swapped atomically
// on reconfiguration; requests in flight keep the set they started with.
type Server struct {
	build  Builder
	deps   atomic.Pointer[app.Deps]
	mu     sync.Mutex // serialises reconfiguration
	svc    *Service
	mcp    *mcp.Server
	router *chi.Mux
	opts   Options
	logger *slog.Logger
}

// New builds the initial collaborators from cfg and wires the routes
func New(cfg *config.Config, build Builder, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PollWait <= 0 {
		opts.PollWait = 25 * time.Second
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	d, err := build(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{build: build, opts: opts, logger: opts.Logger}
	s.deps.Store(d)
	s.svc = &Service{deps: s.deps.Load, clock: opts.Clock}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: Name, Version: opts.Version}, nil)
	s.svc.RegisterMCP(s.mcp)
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// MCP returns the MCP server carrying the tools
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Deps returns the current collaborators
func (s *Server) Deps() *app.Deps { return s.deps.Load() }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors)

	r.Get("/mcp/ping", s.handlePing)
	r.Get("/mcp/info", s.handleInfo)
	r.Post("/mcp/analyze_figma_project", handle(s, s.svc.AnalyzeProject))
	r.Post("/mcp/extract_project_screens", handle(s, s.svc.ExtractScreens))
	r.Post("/mcp/analyze_screen_content", handle(s, s.svc.AnalyzeScreen))
	r.Post("/mcp/export_screenshots_batch", handle(s, s.svc.ExportScreenshots))
	r.Post("/mcp/detect_user_flows", handle(s, s.svc.DetectUserFlows))

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	r.Handle("/mcp/rpc", mcpHandler)

	r.Get("/plugin/messages", s.handlePoll)
	r.Post("/plugin/messages", s.handlePluginMessage)
	r.Post("/plugin/config", s.handleConfig)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
	})
	return r
}

// cors allows the plugin iframe to call the server and answers preflights
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handle decodes a JSON body into Req, runs op and writes its result
func handle[Req, Resp any](s *Server, op func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		resp, err := op(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusOf(err error) int {
	var reqErr *requestError
	var apiErr *figma.APIError
	var hookErr *webhook.StatusError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scanner.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr), errors.As(err, &hookErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		s.logger.Error("request_failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
		"name":    Name,
	})
}

// ToolDefinition describes one operation in /mcp/info
type ToolDefinition struct {
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(toolDefs))
	defs := make(map[string]ToolDefinition, len(toolDefs))
	for _, t := range toolDefs {
		names = append(names, t.name)
		defs[t.name] = ToolDefinition{Description: t.description, Params: t.params}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             Name,
		"description":      "Design file analysis server",
		"version":          s.opts.Version,
		"tools":            names,
		"tool_definitions": defs,
	})
}

// handlePoll hands queued upload requests to the plugin. It answers with an
// empty list after PollWait when nothing is queued.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	q := s.deps.Load().Queue
	if q == nil {
		writeJSON(w, http.StatusOK, []upload.Message{})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.PollWait)
	defer cancel()
	msgs := q.Next(ctx)
	if msgs == nil {
		msgs = []upload.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handlePluginMessage feeds an upload reply from the plugin to the broker
func (s *Server) handlePluginMessage(w http.ResponseWriter, r *http.Request) {
	var msg upload.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	b := s.deps.Load().Broker
	if b == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "uploads are not enabled"})
		return
	}
	matched := b.Dispatch(msg)
	if !matched {
		s.logger.Warn("plugin_message_unmatched", "type", msg.Type, "request_id", msg.RequestID)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"matched": matched})
}

// ConfigUpdate is the body of POST /plugin/config. Absent fields keep
// their current value.
type ConfigUpdate struct {
	FigmaToken    *string `json:"figma_token,omitempty"`
	WebhookURL    *string `json:"webhook_url,omitempty"`
	WebhookAPIKey *string `json:"webhook_api_key,omitempty"`
	Provider      *string `json:"provider,omitempty"`
	Model         *string `json:"model,omitempty"`
	APIKey        *string `json:"api_key,omitempty"`
	CloudName     *string `json:"cloud_name,omitempty"`
	UploadPreset  *string `json:"upload_preset,omitempty"`
}

// Reconfigure builds a new set of collaborators from the current
// configuration plus u and swaps it in. On error nothing changes.
func (s *Server) Reconfigure(u ConfigUpdate) (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := *s.deps.Load().Config
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.Figma.Token, u.FigmaToken)
	set(&cfg.Webhook.URL, u.WebhookURL)
	set(&cfg.Webhook.APIKey, u.WebhookAPIKey)
	set(&cfg.AI.Provider, u.Provider)
	set(&cfg.AI.Model, u.Model)
	set(&cfg.Upload.CloudName, u.CloudName)
	set(&cfg.Upload.UploadPreset, u.UploadPreset)
	if u.APIKey != nil {
		switch cfg.AI.Provider {
		case "openai", "gpt":
			cfg.AI.OpenAIKey = *u.APIKey
		default:
			cfg.AI.AnthropicKey = *u.APIKey
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, badRequest("%v", err)
	}
	d, err := s.build(&cfg)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	s.deps.Store(d)
	s.logger.Info("server_reconfigured", "provider", cfg.AI.Provider, "webhook_url", cfg.Webhook.URL)
	return &cfg, nil
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var u ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	cfg, err := s.Reconfigure(u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d := s.deps.Load()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"provider":    cfg.AI.Provider,
		"webhook_url": cfg.Webhook.URL,
		"figma":       d.Figma != nil,
		"ai":          d.AI != nil,
		"uploads":     d.Broker != nil,
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_started", "addr", addr, "tools", len(toolDefs))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	s.logger.Info("server_stopped")
	return nil
}
