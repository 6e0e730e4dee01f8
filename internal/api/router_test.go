package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/internal/api/handlers"
	"github.com/wonny/stockcast/internal/chat"
	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/internal/feedback"
	"github.com/wonny/stockcast/pkg/logger"
)

type fakeAnalyzer struct {
	symbols []string
}

func (f *fakeAnalyzer) RunAnalysis(ctx context.Context, symbol string) (*contracts.AnalysisState, error) {
	return f.RunAnalysisWithObserver(ctx, symbol, nil)
}

func (f *fakeAnalyzer) RunAnalysisWithObserver(_ context.Context, symbol string, obs contracts.StageObserver) (*contracts.AnalysisState, error) {
	f.symbols = append(f.symbols, symbol)
	state, err := contracts.NewAnalysisState(symbol)
	if err != nil {
		return nil, err
	}
	if obs != nil {
		obs.OnStage(contracts.StageEvent{Symbol: state.Symbol(), Stage: contracts.StageFetch, Status: contracts.StatusStarted})
		obs.OnStage(contracts.StageEvent{Symbol: state.Symbol(), Stage: contracts.StageFetch, Status: contracts.StatusFailed, Error: "not found"})
	}
	if state.Symbol() == "ZZZINVALID" {
		state.SetError(fmt.Errorf("%w: ZZZINVALID", contracts.ErrNotFound))
		return state, nil
	}
	state.NarrativeReport = "ok"
	state.VisualizationRef = state.Symbol() + "_forecast.png"
	return state, nil
}

type fakeChat struct{}

func (fakeChat) Chat(_ context.Context, _ string, turns []contracts.ChatTurn) (string, error) {
	last := turns[len(turns)-1].Text
	if last == "fail" {
		return "", fmt.Errorf("%w: upstream", contracts.ErrNetwork)
	}
	return "echo: " + last, nil
}

type memStore struct{ entries []feedback.Entry }

func (m *memStore) Save(_ context.Context, e feedback.Entry) (int64, error) {
	m.entries = append(m.entries, e)
	return int64(len(m.entries)), nil
}

func (m *memStore) Summary(_ context.Context, symbol string) (*feedback.Summary, error) {
	s := &feedback.Summary{StockSymbol: symbol, RatingDistribution: map[int]int{}}
	var sum int
	for _, e := range m.entries {
		if symbol == "" || e.StockSymbol == symbol {
			s.TotalFeedback++
			s.RatingDistribution[e.Rating]++
			sum += e.Rating
		}
	}
	if s.TotalFeedback > 0 {
		s.AverageRating = float64(sum) / float64(s.TotalFeedback)
	}
	return s, nil
}

type testEnv struct {
	router   http.Handler
	analyzer *fakeAnalyzer
	dir      string
}

func newTestEnv(t *testing.T, store feedback.Store) *testEnv {
	t.Helper()
	log := logger.NewNop()
	env := &testEnv{analyzer: &fakeAnalyzer{}, dir: t.TempDir()}
	env.router = NewRouter(Handlers{
		Analysis:      handlers.NewAnalysisHandler(env.analyzer, log),
		Visualization: handlers.NewVisualizationHandler(env.dir, log),
		Chat:          handlers.NewChatHandler(chat.NewService(fakeChat{}, log.Zerolog()), log),
		Feedback:      handlers.NewFeedbackHandler(feedback.NewService(store, log), log),
	}, log)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestAnalyzeStock(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  bool
	}{
		{"success", `{"stock_symbol":"aapl"}`, http.StatusOK, false},
		{"partial result still 200", `{"stock_symbol":"ZZZINVALID"}`, http.StatusOK, true},
		{"empty symbol", `{"stock_symbol":"  "}`, http.StatusBadRequest, true},
		{"bad json", `{`, http.StatusBadRequest, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do("POST", "/analyze-stock", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			_, hasErr := body["error"]
			assert.Equal(t, tt.wantError, hasErr)
		})
	}

	rec := env.do("POST", "/analyze-stock", `{"stock_symbol":"aapl"}`)
	body := decode(t, rec)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, "AAPL_forecast.png", body["visualization_ref"])
	assert.Equal(t, []interface{}{}, body["news_headlines"])
}

func TestGetAnalysis(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do("GET", "/api/analysis/msft", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MSFT", decode(t, rec)["symbol"])
	assert.Equal(t, []string{"msft"}, env.analyzer.symbols)
}

func TestVisualizations(t *testing.T) {
	env := newTestEnv(t, nil)
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "AAPL_forecast.png"), png, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(env.dir), "secret_forecast.png"), png, 0o644))

	rec := env.do("GET", "/visualizations/AAPL_forecast.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())

	for _, path := range []string{
		"/visualizations/MSFT_forecast.png",
		"/visualizations/..%5Csecret_forecast.png",
		"/visualizations/.._forecast.png",
		"/visualizations/notes.txt",
	} {
		rec := env.do("GET", path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestFinancialChat(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("POST", "/financial-chat", `{"message":"buy?","history":[["hi","hello"]]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "echo: buy?", decode(t, rec)["response"])

	rec = env.do("POST", "/financial-chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do("POST", "/financial-chat", `{"message":"fail"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFeedback(t *testing.T) {
	env := newTestEnv(t, &memStore{})

	rec := env.do("POST", "/submit-feedback", `{"stock_symbol":"aapl","rating":5,"comments":"great"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do("POST", "/submit-feedback", `{"stock_symbol":"AAPL","rating":3}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do("POST", "/submit-feedback", `{"stock_symbol":"AAPL","rating":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do("GET", "/feedback-summary?stock_symbol=AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 2.0, body["total_feedback"])
	assert.Equal(t, 4.0, body["average_rating"])
	assert.Equal(t, map[string]interface{}{"3": 1.0, "5": 1.0}, body["rating_distribution"])
}

func TestFeedback_NoDatabase(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do("POST", "/submit-feedback", `{"stock_symbol":"AAPL","rating":5}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do("GET", "/feedback-summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do("OPTIONS", "/analyze-stock", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketStream(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analyze?symbol=aapl"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var messages []handlers.StreamMessage
	for {
		var msg handlers.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		messages = append(messages, msg)
	}

	require.Len(t, messages, 3)
	assert.Equal(t, "stage", messages[0].Type)
	assert.Equal(t, contracts.StageFetch, messages[0].Event.Stage)
	assert.Equal(t, "result", messages[2].Type)
	require.NotNil(t, messages[2].State)
	assert.Equal(t, "AAPL", messages[2].State.Symbol())
}

func TestWebSocketStream_MissingSymbol(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do("GET", "/ws/analyze", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
