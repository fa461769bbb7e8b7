package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/carteira/internal/app"
	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

type mockPortfolioService struct {
	mu         sync.Mutex
	defs       []*models.PortfolioDefinition
	snapshots  map[string]*models.PortfolioSnapshot
	refreshErr error
	lastMobile *bool
}

func (m *mockPortfolioService) ListPortfolios(context.Context) ([]*models.PortfolioDefinition, error) {
	return m.defs, nil
}

func (m *mockPortfolioService) Refresh(_ context.Context, name string, mobile bool) (*models.PortfolioSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMobile = &mobile
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	mode := "desktop"
	if mobile {
		mode = "mobile"
	}
	snap := &models.PortfolioSnapshot{Portfolio: name, Mode: mode}
	if m.snapshots == nil {
		m.snapshots = map[string]*models.PortfolioSnapshot{}
	}
	m.snapshots[name] = snap
	return snap, nil
}

func (m *mockPortfolioService) GetSnapshot(_ context.Context, name string) (*models.PortfolioSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[name]
	if !ok {
		return nil, fmt.Errorf("portfolio '%s': %w", name, interfaces.ErrSnapshotNotFound)
	}
	return snap, nil
}

func (m *mockPortfolioService) RefreshAll(context.Context) (int, error) {
	return len(m.defs), nil
}

type mockMarketService struct {
	indices  []models.IndexSnapshot
	quoteErr error
	asked    string
}

func (m *mockMarketService) GetIndices(context.Context) []models.IndexSnapshot {
	return m.indices
}

func (m *mockMarketService) GetQuote(_ context.Context, ticker string) (*models.Quote, error) {
	m.asked = ticker
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return &models.Quote{Symbol: ticker, Price: 12.34}, nil
}

func newTestServer(ps interfaces.PortfolioService, ms interfaces.MarketService, configure func(*common.Config)) *Server {
	cfg := common.NewDefaultConfig()
	if configure != nil {
		configure(cfg)
	}
	a := &app.App{
		Config:           cfg,
		Logger:           common.NewSilentLogger(),
		PortfolioService: ps,
		MarketService:    ms,
		StartupTime:      time.Now(),
	}
	return NewServer(a)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected a correlation ID header")
	}
}

func TestVersion_IncludesVersionFields(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["version"] != common.GetVersion() {
		t.Errorf("expected version %q, got %q", common.GetVersion(), body["version"])
	}
}

func TestPortfolioList(t *testing.T) {
	ps := &mockPortfolioService{defs: []*models.PortfolioDefinition{{
		Name: "microcaps",
		Kind: models.KindMicroCaps,
		Assets: []models.AssetSeed{
			{Ticker: "ABCD3"}, {Ticker: "EFGH3"},
		},
	}}}
	srv := newTestServer(ps, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolios", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Portfolios []portfolioSummary `json:"portfolios"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Portfolios) != 1 || body.Portfolios[0].Assets != 2 {
		t.Fatalf("unexpected list: %+v", body.Portfolios)
	}
	if strings.Join(body.Portfolios[0].Tickers, ",") != "ABCD3,EFGH3" {
		t.Errorf("unexpected tickers: %v", body.Portfolios[0].Tickers)
	}
}

func TestPortfolioGet_NeverRefreshedIs404(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolios/microcaps", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body ErrorResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != "snapshot_not_found" {
		t.Errorf("expected snapshot_not_found code, got %q", body.Code)
	}
}

func TestPortfolioRefresh_DeviceSelection(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header map[string]string
		mobile bool
	}{
		{"default desktop", "/api/portfolios/fiis/refresh", nil, false},
		{"query param", "/api/portfolios/fiis/refresh?device=mobile", nil, true},
		{"device header", "/api/portfolios/fiis/refresh", map[string]string{"X-Client-Device": "mobile"}, true},
		{"user agent", "/api/portfolios/fiis/refresh", map[string]string{"User-Agent": "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"}, true},
		{"query overrides agent", "/api/portfolios/fiis/refresh?device=desktop", map[string]string{"User-Agent": "Android Mobile"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := &mockPortfolioService{}
			srv := newTestServer(ps, &mockMarketService{}, nil)

			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := serve(srv, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ps.lastMobile == nil || *ps.lastMobile != tt.mobile {
				t.Errorf("expected mobile=%v, got %v", tt.mobile, ps.lastMobile)
			}
		})
	}
}

func TestPortfolioRefresh_RequiresPost(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolios/fiis/refresh", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestPortfolioRefresh_UnknownPortfolioIs404(t *testing.T) {
	ps := &mockPortfolioService{refreshErr: fmt.Errorf("failed to load portfolio 'nope': %w", interfaces.ErrPortfolioNotFound)}
	srv := newTestServer(ps, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/portfolios/nope/refresh", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPortfolioRefresh_StorageFailureIs500(t *testing.T) {
	ps := &mockPortfolioService{refreshErr: errors.New("database unavailable")}
	srv := newTestServer(ps, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/portfolios/fiis/refresh", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestPortfolioRoutes_RejectInvalidName(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolios/bad$name", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPortfolioRoutes_UnknownSubpath(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{}, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolios/fiis/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPortfolioChart_RendersPNG(t *testing.T) {
	ps := &mockPortfolioService{snapshots: map[string]*models.PortfolioSnapshot{
		"fiis": {
			Portfolio: "fiis",
			Assets: []models.Asset{
				{Ticker: "WXYZ11", Performance: 4.5},
				{Ticker: "KLMN11", Performance: -2.0},
			},
		},
	}}
	srv := newTestServer(ps, &mockMarketService{}, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/portfolios/fiis/chart.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("expected image/png, got %s", rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}

func TestMarketIndices_DegradedFlag(t *testing.T) {
	ms := &mockMarketService{indices: []models.IndexSnapshot{
		{Name: "IBOV", Value: 122000, Source: models.SourceAPI},
		{Name: "SMLL", Value: 2050, Source: models.SourceFallback},
	}}
	srv := newTestServer(&mockPortfolioService{}, ms, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/market/indices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body indicesResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Indices) != 2 {
		t.Fatalf("expected 2 indices, got %d", len(body.Indices))
	}
	if !body.Degraded {
		t.Error("expected degraded=true when any index is not live")
	}
}

func TestMarketQuote_NormalisesTicker(t *testing.T) {
	ms := &mockMarketService{}
	srv := newTestServer(&mockPortfolioService{}, ms, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/market/quote/petr4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ms.asked != "PETR4" {
		t.Errorf("expected PETR4 passed to service, got %q", ms.asked)
	}
}

func TestMarketQuote_UpstreamFailureIs502(t *testing.T) {
	ms := &mockMarketService{quoteErr: errors.New("quote API error")}
	srv := newTestServer(&mockPortfolioService{}, ms, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/market/quote/PETR4", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestValidateQuoteTicker_Valid(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ABCD3", "ABCD3"},
		{"WXYZ11", "WXYZ11"},
		{"^BVSP", "^BVSP"},
		{"smal11", "SMAL11"}, // lowercase normalized
		{" PETR4 ", "PETR4"}, // whitespace trimmed
	}

	for _, tt := range tests {
		result, errMsg := validateQuoteTicker(tt.input)
		if errMsg != "" {
			t.Errorf("validateQuoteTicker(%q) returned error: %s", tt.input, errMsg)
		}
		if result != tt.expected {
			t.Errorf("validateQuoteTicker(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidateQuoteTicker_Invalid(t *testing.T) {
	tests := []struct {
		input string
		desc  string
	}{
		{"", "empty string"},
		{"A", "too short"},
		{"../etc/passwd", "path traversal"},
		{"ABCD3;DROP", "semicolon injection"},
		{"ABCD 3", "space in ticker"},
		{"ABCD3,EFGH4", "batch list"},
		{"BVSP^", "misplaced caret"},
	}

	for _, tt := range tests {
		if _, errMsg := validateQuoteTicker(tt.input); errMsg == "" {
			t.Errorf("validateQuoteTicker(%q) should reject %s", tt.input, tt.desc)
		}
	}
}
