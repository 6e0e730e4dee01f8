package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/logger"
)

// Analyzer runs the analysis pipeline
type Analyzer interface {
	RunAnalysis(ctx context.Context, symbol string) (*contracts.AnalysisState, error)
	RunAnalysisWithObserver(ctx context.Context, symbol string, observer contracts.StageObserver) (*contracts.AnalysisState, error)
}

// AnalysisHandler serves analysis requests
// ⭐ SSOT: analysis endpoints live in this struct only
type AnalysisHandler struct {
	analyzer Analyzer
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analyzer Analyzer, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		logger:   log,
	}
}

// AnalyzeRequest is the body of POST /analyze-stock
type AnalyzeRequest struct {
	StockSymbol string `json:"stock_symbol"`
}

// AnalyzeStock runs an analysis for the posted symbol.
// Partial results (stage failures) are still 200 with error set in the body.
// POST /analyze-stock
func (h *AnalysisHandler) AnalyzeStock(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.analyze(w, r, req.StockSymbol)
}

// GetAnalysis runs an analysis for the symbol in the path
// GET /api/analysis/{symbol}
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, mux.Vars(r)["symbol"])
}

func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request, symbol string) {
	if strings.TrimSpace(symbol) == "" {
		respondError(w, http.StatusBadRequest, "stock_symbol is required")
		return
	}

	state, err := h.analyzer.RunAnalysis(r.Context(), symbol)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondJSON(w, http.StatusOK, state)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const wsWriteWait = 10 * time.Second

// StreamMessage is one websocket frame of /ws/analyze
type StreamMessage struct {
	Type  string                   `json:"type"` // stage, result, error
	Event *contracts.StageEvent    `json:"event,omitempty"`
	State *contracts.AnalysisState `json:"state,omitempty"`
	Error string                   `json:"error,omitempty"`
}

// wsObserver forwards stage events to a websocket connection
type wsObserver struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	failed bool
}

func (o *wsObserver) send(msg StreamMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failed {
		return websocket.ErrCloseSent
	}
	_ = o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := o.conn.WriteJSON(msg); err != nil {
		o.failed = true
		return err
	}
	return nil
}

// OnStage implements contracts.StageObserver
func (o *wsObserver) OnStage(event contracts.StageEvent) {
	_ = o.send(StreamMessage{Type: "stage", Event: &event})
}

// Stream runs an analysis and pushes stage events, then the final state
// GET /ws/analyze?symbol=AAPL
func (h *AnalysisHandler) Stream(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if strings.TrimSpace(symbol) == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	obs := &wsObserver{conn: conn}
	state, err := h.analyzer.RunAnalysisWithObserver(r.Context(), symbol, obs)
	if err != nil {
		_ = obs.send(StreamMessage{Type: "error", Error: err.Error()})
	} else {
		_ = obs.send(StreamMessage{Type: "result", State: state})
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(wsWriteWait))
}
