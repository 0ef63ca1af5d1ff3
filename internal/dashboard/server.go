// Package dashboard serves reconciliation results over a JSON API.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/roundtrip/internal/engine"
	"github.com/eddiefleurent/roundtrip/internal/models"
	"github.com/eddiefleurent/roundtrip/internal/report"
	"github.com/eddiefleurent/roundtrip/internal/util"
)

type Server struct {
	router    *chi.Mux
	server    *http.Server
	logger    *logrus.Logger
	port      int
	authToken string

	mu      sync.RWMutex
	results []engine.Result
}

type Config struct {
	Port      int
	AuthToken string
}

// TradeView is the JSON shape served for a single round trip.
type TradeView struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Symbol    string  `json:"symbol"`
	Contract  string  `json:"contract"`
	Strategy  string  `json:"strategy"`
	OpenDate  string  `json:"open_date,omitempty"`
	CloseDate string  `json:"close_date,omitempty"`
	Quantity  int     `json:"quantity"`
	Credit    string  `json:"credit"`
	Debit     string  `json:"debit"`
	PL        float64 `json:"pl"`
	IsPartial bool    `json:"is_partial"`
	IsOpen    bool    `json:"is_open"`
}

// Statistics aggregates completed round trips across every source.
type Statistics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPL       float64 `json:"total_pl"`
	AveragePL     float64 `json:"average_pl"`
	OpenTrades    int     `json:"open_trades"`
	PartialTrades int     `json:"partial_trades"`
	Sources       int     `json:"sources"`
}

func NewServer(cfg Config, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

// SetResults replaces the served results. Safe to call while serving.
func (s *Server) SetResults(results []engine.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/api/trades", s.handleGetTrades)
	s.router.Get("/api/trades/{id}", s.handleGetTrade)
	s.router.Get("/api/reports", s.handleGetReports)
	s.router.Get("/api/reports/{source}", s.handleGetReport)
	s.router.Get("/api/stats", s.handleGetStats)
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	s.mu.RLock()
	views := make([]TradeView, 0)
	for _, res := range s.results {
		if source != "" && res.Source != source {
			continue
		}
		for _, trade := range res.Trades {
			views = append(views, tradeView(res.Source, trade))
		}
	}
	s.mu.RUnlock()

	s.writeJSON(w, views)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, res := range s.results {
		for _, trade := range res.Trades {
			if trade.ID == id {
				s.writeJSON(w, tradeView(res.Source, trade))
				return
			}
		}
	}

	http.Error(w, "Not Found", http.StatusNotFound)
}

func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	reports := make([]report.Report, 0, len(s.results))
	for _, res := range s.results {
		reports = append(reports, res.Report)
	}
	s.mu.RUnlock()

	s.writeJSON(w, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, res := range s.results {
		if res.Source == source {
			s.writeJSON(w, res.Report)
			return
		}
	}

	http.Error(w, "Not Found", http.StatusNotFound)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stats := s.calculateStatistics()
	s.mu.RUnlock()

	s.writeJSON(w, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}

	s.writeJSON(w, health)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// calculateStatistics must be called with the results lock held.
func (s *Server) calculateStatistics() *Statistics {
	stats := &Statistics{Sources: len(s.results)}

	for _, res := range s.results {
		for _, trade := range res.Trades {
			if trade.IsOpen {
				stats.OpenTrades++
				continue
			}
			if trade.IsPartial {
				stats.PartialTrades++
			}
			stats.TotalTrades++
			pl := trade.PL()
			if pl.IsPositive() {
				stats.WinningTrades++
			} else {
				stats.LosingTrades++
			}
			stats.TotalPL += pl.InexactFloat64()
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
		stats.AveragePL = stats.TotalPL / float64(stats.TotalTrades)
	}

	return stats
}

func tradeView(source string, trade models.Trade) TradeView {
	view := TradeView{
		ID:        trade.ID,
		Source:    source,
		Symbol:    trade.Key.Symbol,
		Contract:  trade.Key.String(),
		Strategy:  trade.Strategy,
		Quantity:  trade.Quantity,
		Credit:    util.FormatUSD(trade.Credit),
		Debit:     util.FormatUSD(trade.Debit),
		PL:        trade.PL().InexactFloat64(),
		IsPartial: trade.IsPartial,
		IsOpen:    trade.IsOpen,
	}
	if !trade.OpenDate.IsZero() {
		view.OpenDate = trade.OpenDate.Format("2006-01-02")
	}
	if !trade.CloseDate.IsZero() {
		view.CloseDate = trade.CloseDate.Format("2006-01-02")
	}
	return view
}
