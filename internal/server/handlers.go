package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/models"
	"github.com/bobmcallan/carteira/internal/services/portfolio"
)

// B3 tickers (ABCD3, WXYZ11) plus caret-prefixed indices (^BVSP)
var quoteTickerPattern = regexp.MustCompile(`^\^?[A-Z0-9]{2,12}$`)

// portfolioSummary is the list view of a portfolio definition.
type portfolioSummary struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Assets  int      `json:"assets"`
	Tickers []string `json:"tickers"`
}

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	defs, err := s.app.PortfolioService.ListPortfolios(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	out := make([]portfolioSummary, 0, len(defs))
	for _, def := range defs {
		out = append(out, portfolioSummary{
			Name:    def.Name,
			Kind:    def.Kind,
			Assets:  len(def.Assets),
			Tickers: def.Tickers(),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"portfolios": out})
}

func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := s.app.PortfolioService.GetSnapshot(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// handlePortfolioRefresh runs one refresh cycle using the strategy matching
// the caller's device class.
func (s *Server) handlePortfolioRefresh(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	mobile := common.ResolveMobile(ctx)

	snapshot, err := s.app.PortfolioService.Refresh(ctx, name, mobile)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info().Str("portfolio", name).Msg("Refresh abandoned by client")
			return
		}
		WriteServiceError(w, err)
		return
	}

	s.logger.Info().
		Str("portfolio", name).
		Str("mode", snapshot.Mode).
		Str("user", common.ResolveUserEmail(ctx)).
		Msg("Portfolio refresh served")

	WriteJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := s.app.PortfolioService.GetSnapshot(r.Context(), name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	png, err := portfolio.RenderPerformanceChart(snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Str("portfolio", name).Msg("Chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// indicesResponse wraps index snapshots with a degraded flag for the UI.
type indicesResponse struct {
	Indices  []models.IndexSnapshot `json:"indices"`
	Degraded bool                   `json:"degraded"`
}

func (s *Server) handleMarketIndices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	indices := s.app.MarketService.GetIndices(r.Context())
	resp := indicesResponse{Indices: indices}
	for _, idx := range indices {
		if idx.Source != models.SourceAPI {
			resp.Degraded = true
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker, errMsg := validateQuoteTicker(PathParam(r, "/api/market/quote/", ""))
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	quote, err := s.app.MarketService.GetQuote(r.Context(), ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Quote lookup failed")
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Quote unavailable for %s", ticker))
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}

// validateQuoteTicker normalises a ticker and rejects anything that is not a
// plain B3 code or index symbol.
func validateQuoteTicker(ticker string) (string, string) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", "ticker is required"
	}
	if !quoteTickerPattern.MatchString(ticker) {
		return "", fmt.Sprintf("invalid ticker %q", ticker)
	}
	return ticker, ""
}

func validatePortfolioName(name string) (string, string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !models.ValidPortfolioName(name) {
		return "", fmt.Sprintf("invalid portfolio name %q", name)
	}
	return name, ""
}
