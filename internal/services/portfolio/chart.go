package portfolio

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/models"
)

var (
	gainColor     = drawing.ColorFromHex("16a34a") // green-600
	lossColor     = drawing.ColorFromHex("dc2626") // red-600
	degradedColor = drawing.ColorFromHex("9ca3af") // gray-400
)

// RenderPerformanceChart renders a PNG bar chart of per-asset performance.
// Degraded assets are drawn in gray. Returns raw PNG bytes.
func RenderPerformanceChart(snapshot *models.PortfolioSnapshot) ([]byte, error) {
	if snapshot == nil || len(snapshot.Assets) == 0 {
		return nil, fmt.Errorf("no assets to chart")
	}

	bars := make([]chart.Value, 0, len(snapshot.Assets))
	lo, hi := 0.0, 0.0
	for _, a := range snapshot.Assets {
		color := gainColor
		switch {
		case a.Degraded:
			color = degradedColor
		case a.Performance < 0:
			color = lossColor
		}
		bars = append(bars, chart.Value{
			Label: a.Ticker,
			Value: a.Performance,
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
				StrokeWidth: 1,
			},
		})
		lo = math.Min(lo, a.Performance)
		hi = math.Max(hi, a.Performance)
	}

	// keep a non-empty range around zero so flat portfolios still render
	pad := math.Max((hi-lo)*0.1, 1)

	graph := chart.BarChart{
		Title:  fmt.Sprintf("%s: performance (%%)", snapshot.Portfolio),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth:     40,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return common.FormatNumber(f, 0) + "%"
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
