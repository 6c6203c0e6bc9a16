package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/spxdesk/spread-engine/internal/alerts"
	"github.com/spxdesk/spread-engine/internal/decision"
	"github.com/spxdesk/spread-engine/internal/trademem"
	"github.com/spxdesk/spread-engine/internal/volatility"
	"github.com/spxdesk/spread-engine/pkg/types"
	"github.com/spxdesk/spread-engine/pkg/utils"
)

// Config holds the HTTP/WebSocket server's bind address and timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a reasonable bind address for local development.
func DefaultConfig() Config {
	return Config{Host: "localhost", Port: 8090, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
}

// Server is the engine's thin HTTP/WebSocket surface: it accepts snapshots
// for evaluation, serves read-only views over the latest decision and the
// trade-memory tables, exposes Prometheus metrics, and streams decisions
// and trade events to WebSocket subscribers.
type Server struct {
	logger     *zap.Logger
	cfg        Config
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub

	pipeline *decision.Pipeline
	volCache *volatility.Cache
	store    *trademem.Store
	eventLog *trademem.EventLog
	alertMgr *alerts.Manager
	poll     pollState

	latest *types.DecisionOutput
}

// New builds a Server wired to the decision pipeline, volatility cache, and
// trade-memory store.
func New(logger *zap.Logger, cfg Config, pipeline *decision.Pipeline, volCache *volatility.Cache, store *trademem.Store, eventLog *trademem.EventLog, alertMgr *alerts.Manager) *Server {
	s := &Server{
		logger:   logger,
		cfg:      cfg,
		router:   mux.NewRouter(),
		hub:      NewHub(logger),
		pipeline: pipeline,
		volCache: volCache,
		store:    store,
		eventLog: eventLog,
		alertMgr: alertMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	eventLog.Subscribe(func(event types.TradeEventRecord) {
		s.hub.BroadcastTradeEvent(event)
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/decisions/latest", s.handleLatestDecision).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/trades", s.handleTrades).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/candidates", s.handleCandidates).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Run starts the Hub's event loop and blocks serving HTTP until the
// server is stopped or ListenAndServe fails.
func (s *Server) Run() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("starting api server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Hub exposes the WebSocket broadcast hub so the caller's tick loop can
// push decisions and trade events as they are produced.
func (s *Server) Hub() *Hub { return s.hub }

// Router exposes the underlying mux.Router for tests that want to drive
// requests through httptest.NewServer without binding a real port.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// handleEvaluate accepts a Snapshot body, resolves the data mode from its
// source tag, runs the decision pipeline against the recorded IV sample
// history, and records the result as the latest decision.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var snapshot types.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		http.Error(w, "invalid snapshot body: "+err.Error(), http.StatusBadRequest)
		return
	}

	samples, err := s.volCache.Load()
	if err != nil {
		s.logger.Warn("failed to load iv sample cache", zap.Error(err))
		samples = []volatility.Sample{}
	}

	dataMode := s.pipeline.ResolveDataMode(snapshot)

	now := snapshot.AsOf
	if primary := primaryCandidate(snapshot.Candidates); primary != nil {
		fingerprint := fmt.Sprintf("%x", utils.Hash64(primary.CandidateID+"|"+primary.Strategy+"|"+primary.Credit.String()))
		snapshot.AlertHints = s.alertMgr.Evaluate(primary.CandidateID, fingerprint, primary.Ready, now)
	}

	out := s.pipeline.Evaluate(snapshot, samples, dataMode)

	if out.Status == types.StatusReady && out.PrimaryCandidateID != nil && !snapshot.AlertHints.CooldownActive &&
		!snapshot.AlertHints.DayCapReached && !snapshot.AlertHints.Deduped && !snapshot.AlertHints.ReadyDebounced {
		primary := primaryCandidate(snapshot.Candidates)
		if primary != nil {
			fingerprint := fmt.Sprintf("%x", utils.Hash64(primary.CandidateID+"|"+primary.Strategy+"|"+primary.Credit.String()))
			s.alertMgr.RecordSent(primary.CandidateID, fingerprint, now)
		}
	}

	s.latest = &out
	s.hub.BroadcastDecision(out)

	if len(snapshot.DTETargets) > 0 {
		if _, err := s.store.UpsertCandidatesFromTargets(snapshot.DTETargets, s.eventLog, now); err != nil {
			s.logger.Warn("failed to upsert trade candidates from this tick's targets", zap.Error(err))
		}
		if _, err := s.store.UpdateOpenTradeMarksFromDecision(snapshot.DTETargets, s.eventLog, now); err != nil {
			s.logger.Warn("failed to reconcile open trade marks", zap.Error(err))
		}
	}

	openExecutions, err := s.store.LoadExecutions()
	if err != nil {
		s.logger.Warn("failed to load open executions for the polling controller", zap.Error(err))
	}
	pollIntervalSeconds := s.nextPollInterval(snapshot, out, openExecutions)
	pollIntervalGauge.Set(float64(pollIntervalSeconds))
	decisionStatusCounter.WithLabelValues(string(out.Status)).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"decision":              out,
		"poll_interval_seconds": pollIntervalSeconds,
	})
}

func (s *Server) handleLatestDecision(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		http.Error(w, "no decision has been evaluated yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.latest)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	executions, err := s.store.LoadExecutions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": executions, "count": len(executions)})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.store.LoadCandidates()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates, "count": len(candidates)})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{id: uuid.New().String(), hub: s.hub, conn: conn, send: make(chan []byte, 256)}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return
	}
}

// primaryCandidate returns the first ready candidate in cards, falling back
// to the first candidate overall, so the alert manager always has a stable
// candidate identity to track cooldown/dedupe state against.
func primaryCandidate(cards []types.CandidateCard) *types.CandidateCard {
	if len(cards) == 0 {
		return nil
	}
	for i := range cards {
		if cards[i].Ready {
			return &cards[i]
		}
	}
	return &cards[0]
}
