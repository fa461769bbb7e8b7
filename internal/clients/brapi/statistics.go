package brapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

const (
	resultsPath       = "$.results"
	symbolPath        = "$.symbol"
	dividendYieldPath = "$.defaultKeyStatistics.dividendYield"
)

// extractDividendYields walks the untyped statistics payload. Results without
// a symbol or a usable yield are skipped rather than failing the whole call.
func extractDividendYields(doc any) (map[string]float64, error) {
	raw, err := jsonpath.Get(resultsPath, doc)
	if err != nil {
		return nil, fmt.Errorf("statistics payload has no results: %w", err)
	}
	results, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("statistics results is %T, not an array", raw)
	}

	yields := make(map[string]float64, len(results))
	for _, item := range results {
		sym, err := jsonpath.Get(symbolPath, item)
		if err != nil {
			continue
		}
		symbol, ok := sym.(string)
		if !ok || symbol == "" {
			continue
		}

		val, err := jsonpath.Get(dividendYieldPath, item)
		if err != nil {
			continue
		}
		dy, ok := toFloat(val)
		if !ok {
			continue
		}
		yields[strings.ToUpper(symbol)] = dy
	}
	return yields, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
