package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/carteira/internal/clients/brapi"
	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

var (
	_ interfaces.FetchStrategy    = (*DesktopStrategy)(nil)
	_ interfaces.FetchStrategy    = (*MobileStrategy)(nil)
	_ interfaces.StrategySelector = (*Selector)(nil)
)

const testDesktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) carteira-test"

// mockQuoteClient implements QuoteClient for tests
type mockQuoteClient struct {
	mu         sync.Mutex
	quotes     map[string]models.Quote
	yields     map[string]float64
	batchErr   error
	batchCalls int
	singleCall []string
}

func (m *mockQuoteClient) GetQuotes(ctx context.Context, tickers []string, opts ...interfaces.RequestOption) ([]models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	var out []models.Quote
	for _, t := range tickers {
		if q, ok := m.quotes[t]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockQuoteClient) GetQuote(ctx context.Context, ticker string, opts ...interfaces.RequestOption) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCall = append(m.singleCall, ticker)
	q, ok := m.quotes[ticker]
	if !ok {
		return nil, errors.New("not found")
	}
	return &q, nil
}

func (m *mockQuoteClient) GetDividendYields(ctx context.Context, tickers []string, opts ...interfaces.RequestOption) (map[string]float64, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := map[string]float64{}
	for _, t := range tickers {
		if dy, ok := m.yields[t]; ok {
			out[t] = dy
		}
	}
	return out, nil
}

func testFetchConfig() common.FetchConfig {
	return common.FetchConfig{Workers: 1, TickerDelay: "0s", BackoffInitial: "0s", BackoffMax: "0s", UserAgent: testDesktopUA}
}

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

// --- Desktop ---

func TestDesktopStrategy_BatchedAndDropsNonPositive(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]models.Quote{
		"ABCD3":  {Symbol: "ABCD3", Price: 11.4},
		"ZERO3":  {Symbol: "ZERO3", Price: 0},
		"NEG11":  {Symbol: "NEG11", Price: -1},
		"WXYZ11": {Symbol: "WXYZ11", Price: 98.1},
	}}
	s := NewDesktopStrategy(client, common.NewSilentLogger())

	got := s.FetchQuotes(context.Background(), []string{"abcd3", "ZERO3", "NEG11", "WXYZ11", "MISS3", "ABCD3"})

	assert.Equal(t, 1, client.batchCalls)
	assert.Len(t, got, 2)
	assert.Equal(t, 11.4, got["ABCD3"].Price)
	assert.Equal(t, 98.1, got["WXYZ11"].Price)
	_, ok := got["ZERO3"]
	assert.False(t, ok)
}

func TestDesktopStrategy_FailureYieldsEmptyMap(t *testing.T) {
	client := &mockQuoteClient{batchErr: errors.New("connection refused")}
	s := NewDesktopStrategy(client, common.NewSilentLogger())

	quotes := s.FetchQuotes(context.Background(), []string{"ABCD3"})
	yields := s.FetchYields(context.Background(), []string{"ABCD3"})

	assert.NotNil(t, quotes)
	assert.Empty(t, quotes)
	assert.Empty(t, yields)
}

func TestDesktopStrategy_EmptyTickers(t *testing.T) {
	client := &mockQuoteClient{}
	s := NewDesktopStrategy(client, common.NewSilentLogger())
	assert.Empty(t, s.FetchQuotes(context.Background(), nil))
	assert.Equal(t, 0, client.batchCalls)
}

// --- Selector ---

func TestSelector_Select(t *testing.T) {
	client := &mockQuoteClient{}
	sel := NewDefaultSelector(client, testFetchConfig(), common.NewSilentLogger())

	assert.Equal(t, ModeDesktop, sel.Select(false).Name())
	assert.Equal(t, ModeMobile, sel.Select(true).Name())
	assert.Equal(t, ModeMobile, ModeName(true))
	assert.Equal(t, ModeDesktop, ModeName(false))
}

// --- Variants ---

func TestDefaultVariants_Order(t *testing.T) {
	variants := DefaultVariants(testDesktopUA)
	require.Len(t, variants, 3)
	assert.Equal(t, VariantDesktopUserAgent, variants[0].Name)
	assert.Equal(t, VariantNoUserAgent, variants[1].Name)
	assert.Equal(t, VariantSimplifiedURL, variants[2].Name)
}

func TestVariantOptions_TransformRequest(t *testing.T) {
	newReq := func() *http.Request {
		req, _ := http.NewRequest(http.MethodGet, "https://example.test/api/quote/ABCD3?token=x", nil)
		req.Header.Set("User-Agent", "Go-http-client/1.1")
		return req
	}

	req := newReq()
	WithUserAgent(testDesktopUA)(req)
	assert.Equal(t, testDesktopUA, req.Header.Get("User-Agent"))

	req = newReq()
	WithoutUserAgent()(req)
	assert.Equal(t, "", req.Header.Get("User-Agent"))

	req = newReq()
	WithQueryParam("fundamental", "false")(req)
	assert.Equal(t, "false", req.URL.Query().Get("fundamental"))
	assert.Equal(t, "x", req.URL.Query().Get("token"))
}

// variantServer fails every request except those matching succeedOn.
// It records which variant each request looked like.
func variantServer(t *testing.T, succeedOn string) (*httptest.Server, *[]string, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		var kind string
		switch {
		case r.URL.Query().Get("fundamental") == "false":
			kind = VariantSimplifiedURL
		case ua == "":
			kind = VariantNoUserAgent
		case strings.Contains(ua, "Mozilla"):
			kind = VariantDesktopUserAgent
		default:
			kind = "other"
		}
		mu.Lock()
		seen = append(seen, kind)
		mu.Unlock()

		if kind != succeedOn {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("blocked"))
			return
		}
		symbol := strings.TrimPrefix(r.URL.Path, "/quote/")
		w.Write([]byte(`{"results":[{"symbol":"` + symbol + `","regularMarketPrice":14.0}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen, &mu
}

func newMobileForServer(srv *httptest.Server) *MobileStrategy {
	client := brapi.NewClient("", brapi.WithBaseURL(srv.URL), brapi.WithRateLimit(0))
	return NewMobileStrategy(client, testFetchConfig(), common.NewSilentLogger(), WithBackOff(zeroBackOff))
}

func TestMobileStrategy_VariantOrderStopsAtFirstSuccess(t *testing.T) {
	tests := []struct {
		name      string
		succeedOn string
		want      []string
	}{
		{"first variant", VariantDesktopUserAgent, []string{VariantDesktopUserAgent}},
		{"second variant", VariantNoUserAgent, []string{VariantDesktopUserAgent, VariantNoUserAgent}},
		{"third variant", VariantSimplifiedURL, []string{VariantDesktopUserAgent, VariantNoUserAgent, VariantSimplifiedURL}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen, mu := variantServer(t, tt.succeedOn)
			s := newMobileForServer(srv)

			got := s.FetchQuotes(context.Background(), []string{"ABCD3"})

			require.Contains(t, got, "ABCD3")
			assert.Equal(t, 14.0, got["ABCD3"].Price)
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.want, *seen)
		})
	}
}

func TestMobileStrategy_AllVariantsFailLeavesTickerAbsent(t *testing.T) {
	srv, seen, mu := variantServer(t, "nothing")
	s := newMobileForServer(srv)

	var got interfaces.QuoteMap
	require.NotPanics(t, func() {
		got = s.FetchQuotes(context.Background(), []string{"ABCD3"})
	})

	assert.NotContains(t, got, "ABCD3")
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, *seen, 3)
}

func TestMobileStrategy_NonPositivePriceIsVariantFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Write([]byte(`{"results":[{"symbol":"ABCD3","regularMarketPrice":0}]}`))
			return
		}
		w.Write([]byte(`{"results":[{"symbol":"ABCD3","regularMarketPrice":12.5}]}`))
	}))
	defer srv.Close()

	s := newMobileForServer(srv)
	got := s.FetchQuotes(context.Background(), []string{"ABCD3"})

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 12.5, got["ABCD3"].Price)
}

func TestMobileStrategy_FetchesEachTickerSeparately(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]models.Quote{
		"AAAA3": {Symbol: "AAAA3", Price: 1},
		"BBBB3": {Symbol: "BBBB3", Price: 2},
		"CCCC3": {Symbol: "CCCC3", Price: 3},
	}}
	s := NewMobileStrategy(client, testFetchConfig(), common.NewSilentLogger(), WithBackOff(zeroBackOff))

	got := s.FetchQuotes(context.Background(), []string{"AAAA3", "BBBB3", "CCCC3"})

	assert.Len(t, got, 3)
	assert.Equal(t, 0, client.batchCalls)
	assert.Equal(t, []string{"AAAA3", "BBBB3", "CCCC3"}, client.singleCall)
}

func TestMobileStrategy_BackoffStopEndsChain(t *testing.T) {
	srv, seen, mu := variantServer(t, VariantSimplifiedURL)
	client := brapi.NewClient("", brapi.WithBaseURL(srv.URL), brapi.WithRateLimit(0))
	s := NewMobileStrategy(client, testFetchConfig(), common.NewSilentLogger(),
		WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }))

	got := s.FetchQuotes(context.Background(), []string{"ABCD3"})

	assert.Empty(t, got)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{VariantDesktopUserAgent}, *seen)
}

func TestMobileStrategy_FetchYields(t *testing.T) {
	client := &mockQuoteClient{yields: map[string]float64{"ABCD3": 6.25}}
	s := NewMobileStrategy(client, testFetchConfig(), common.NewSilentLogger(), WithBackOff(zeroBackOff))

	got := s.FetchYields(context.Background(), []string{"ABCD3", "NODY3"})

	assert.Equal(t, interfaces.YieldMap{"ABCD3": 6.25}, got)
}

func TestMobileStrategy_FetchYieldsLogsVariantFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := common.NewLoggerWithOutput("debug", &buf)
	client := &mockQuoteClient{batchErr: errors.New("upstream 503")}
	s := NewMobileStrategy(client, testFetchConfig(), logger, WithBackOff(zeroBackOff))

	got := s.FetchYields(context.Background(), []string{"ABCD3"})

	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "Yield variant failed")
}

// --- Queue ---

func TestQueue_SingleWorkerPreservesOrder(t *testing.T) {
	q := NewQueue(1, 0, common.NewSilentLogger())

	var mu sync.Mutex
	var order []int
	err := q.Run(context.Background(), 5, func(ctx context.Context, i int) {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueue_DelaySpacesTasks(t *testing.T) {
	q := NewQueue(1, 30*time.Millisecond, common.NewSilentLogger())

	start := time.Now()
	err := q.Run(context.Background(), 3, func(ctx context.Context, i int) {})
	require.NoError(t, err)

	// first task is released immediately, the next two wait one delay each
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestQueue_CancellationSkipsRemaining(t *testing.T) {
	q := NewQueue(1, 0, common.NewSilentLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran int32
	err := q.Run(ctx, 10, func(ctx context.Context, i int) {
		atomic.AddInt32(&ran, 1)
		if i == 1 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, atomic.LoadInt32(&ran), int32(10))
}

func TestQueue_PanicIsRecovered(t *testing.T) {
	q := NewQueue(1, 0, common.NewSilentLogger())

	var ran int32
	err := q.Run(context.Background(), 3, func(ctx context.Context, i int) {
		atomic.AddInt32(&ran, 1)
		if i == 0 {
			panic("boom")
		}
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&ran))
}

func TestQueue_WorkersClamped(t *testing.T) {
	assert.Equal(t, 1, NewQueue(0, 0, nil).Workers())
	assert.Equal(t, 4, NewQueue(4, 0, nil).Workers())
	assert.NoError(t, NewQueue(1, 0, nil).Run(context.Background(), 0, nil))
}
