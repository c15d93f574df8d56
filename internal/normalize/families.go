package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/alphavantage-mcp/internal/catalog"
	"github.com/bobmcallan/alphavantage-mcp/internal/toolerr"
)

// shape dispatches on the tool family. The family set is closed and checked
// when the catalog loads.
func shape(tool *catalog.Tool, params catalog.Params, function string, payload map[string]any) (map[string]any, error) {
	switch tool.Family {
	case catalog.FamilyQuote:
		return shapeQuote(payload)
	case catalog.FamilyTimeSeries:
		return shapeTimeSeries(payload)
	case catalog.FamilyLatestBar:
		return shapeLatestBar(payload)
	case catalog.FamilyIndicatorPack:
		return shapeIndicator(function, payload, tool.RowLimit)
	case catalog.FamilySymbolSearch:
		return shapeSymbolSearch(params, payload)
	case catalog.FamilyExchangeRate:
		return shapeExchangeRate(payload)
	case catalog.FamilyEarnings:
		return shapeEarnings(params, payload)
	case catalog.FamilyCorporateActions:
		return shapeCorporateAction(function, payload)
	case catalog.FamilyRecords:
		return cleanMap(payload), nil
	}
	return nil, fmt.Errorf("unsupported family %q", tool.Family)
}

func rejected(format string, args ...any) error {
	return toolerr.New(toolerr.UpstreamRejected, format, args...)
}

func shapeQuote(payload map[string]any) (map[string]any, error) {
	q, _ := payload["Global Quote"].(map[string]any)
	if len(q) == 0 {
		return nil, rejected("upstream returned an empty quote")
	}
	return cleanMap(q), nil
}

// seriesKey returns the first key containing marker, in sorted order.
func seriesKey(payload map[string]any, marker string) (string, bool) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if strings.Contains(k, marker) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}

func metadata(payload map[string]any) map[string]any {
	meta, _ := payload["Meta Data"].(map[string]any)
	if meta == nil {
		return map[string]any{}
	}
	return cleanMap(meta)
}

// seriesItems turns a timestamp-keyed series into rows sorted oldest first.
func seriesItems(series map[string]any) []map[string]any {
	stamps := make([]string, 0, len(series))
	for ts := range series {
		stamps = append(stamps, ts)
	}
	sort.Strings(stamps)

	items := make([]map[string]any, 0, len(stamps))
	for _, ts := range stamps {
		bar, _ := series[ts].(map[string]any)
		item := cleanMap(bar)
		item["timestamp"] = normalizeTimestamp(ts)
		items = append(items, item)
	}
	return items
}

func shapeTimeSeries(payload map[string]any) (map[string]any, error) {
	key, ok := seriesKey(payload, "Time Series")
	if !ok {
		return nil, rejected("upstream payload has no time series")
	}
	series, _ := payload[key].(map[string]any)
	return map[string]any{
		"metadata": metadata(payload),
		"items":    seriesItems(series),
	}, nil
}

func shapeLatestBar(payload map[string]any) (map[string]any, error) {
	ts, err := shapeTimeSeries(payload)
	if err != nil {
		return nil, err
	}
	items := ts["items"].([]map[string]any)
	if len(items) == 0 {
		return nil, rejected("upstream returned an empty series")
	}
	return map[string]any{
		"metadata": ts["metadata"],
		"latest":   items[len(items)-1],
	}, nil
}

// shapeIndicator keeps the rowLimit most recent timestamps of an indicator
// and flattens them into {timestamp, indicator, component, value} rows,
// newest first.
func shapeIndicator(function string, payload map[string]any, rowLimit int) (map[string]any, error) {
	key, ok := seriesKey(payload, "Technical Analysis")
	if !ok {
		return nil, rejected("upstream payload has no %s values", function)
	}
	series, _ := payload[key].(map[string]any)

	stamps := make([]string, 0, len(series))
	for ts := range series {
		stamps = append(stamps, ts)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))
	if rowLimit > 0 && len(stamps) > rowLimit {
		stamps = stamps[:rowLimit]
	}

	indicator := strings.ToLower(function)
	rows := make([]map[string]any, 0, len(stamps))
	for _, ts := range stamps {
		values, _ := series[ts].(map[string]any)
		components := make([]string, 0, len(values))
		for c := range values {
			components = append(components, c)
		}
		sort.Strings(components)

		for _, c := range components {
			component := "value"
			if len(components) > 1 {
				component = cleanKey(c)
			}
			rows = append(rows, map[string]any{
				"timestamp": normalizeTimestamp(ts),
				"indicator": indicator,
				"component": component,
				"value":     cleanValue(component, values[c]),
			})
		}
	}

	return map[string]any{
		"metadata": metadata(payload),
		"rows":     rows,
	}, nil
}

func shapeSymbolSearch(params catalog.Params, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["bestMatches"].([]any)
	if !ok {
		return nil, rejected("upstream payload has no search matches")
	}
	matches := cleanValue("matches", raw).([]any)
	return map[string]any{
		"keywords":      params.String("keywords"),
		"total_matches": len(matches),
		"matches":       matches,
	}, nil
}

func shapeExchangeRate(payload map[string]any) (map[string]any, error) {
	rate, _ := payload["Realtime Currency Exchange Rate"].(map[string]any)
	if len(rate) == 0 {
		return nil, rejected("upstream returned no exchange rate")
	}
	return cleanMap(rate), nil
}

func shapeEarnings(params catalog.Params, payload map[string]any) (map[string]any, error) {
	if _, ok := payload["quarterlyEarnings"]; !ok {
		if _, ok := payload["annualEarnings"]; !ok {
			return nil, rejected("upstream payload has no earnings")
		}
	}
	cleaned := cleanMap(payload)
	quarter := strings.ToUpper(params.String("quarter"))

	quarterly := []any{}
	raw, _ := cleaned["quarterly_earnings"].([]any)
	for _, item := range raw {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q := fiscalQuarter(row["fiscal_date_ending"])
		if quarter != "" && q != quarter {
			continue
		}
		withQuarter := make(map[string]any, len(row)+1)
		for k, v := range row {
			withQuarter[k] = v
		}
		withQuarter["quarter"] = q
		quarterly = append(quarterly, withQuarter)
	}

	annual := []any{}
	rawAnnual, _ := cleaned["annual_earnings"].([]any)
	for _, item := range rawAnnual {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if quarter != "" {
			date, _ := row["fiscal_date_ending"].(string)
			if !strings.HasPrefix(quarter, yearOf(date)+"-") {
				continue
			}
		}
		annual = append(annual, row)
	}

	return map[string]any{
		"symbol":             cleaned["symbol"],
		"annual_earnings":    annual,
		"quarterly_earnings": quarterly,
	}, nil
}

// fiscalQuarter maps "2024-03-31" to "2024-Q1".
func fiscalQuarter(v any) string {
	date, ok := v.(string)
	if !ok || len(date) < 7 {
		return ""
	}
	month, err := strconv.Atoi(date[5:7])
	if err != nil || month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%s-Q%d", date[:4], (month-1)/3+1)
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func shapeCorporateAction(function string, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["data"].([]any)
	if !ok {
		return nil, rejected("upstream payload has no %s data", strings.ToLower(function))
	}
	rows := cleanValue("data", raw).([]any)

	switch function {
	case "DIVIDENDS":
		dividends := make([]any, 0, len(rows))
		for _, item := range rows {
			row, _ := item.(map[string]any)
			dividends = append(dividends, map[string]any{
				"ex_dividend_date": row["ex_dividend_date"],
				"dividend_amount":  row["amount"],
				"record_date":      row["record_date"],
				"payment_date":     row["payment_date"],
				"declaration_date": row["declaration_date"],
			})
		}
		return map[string]any{"symbol": payload["symbol"], "dividends": dividends}, nil
	case "SPLITS":
		splits := make([]any, 0, len(rows))
		for _, item := range rows {
			row, _ := item.(map[string]any)
			splits = append(splits, map[string]any{
				"date":              row["effective_date"],
				"split_coefficient": row["split_factor"],
			})
		}
		return map[string]any{"symbol": payload["symbol"], "splits": splits}, nil
	}
	return map[string]any{"symbol": payload["symbol"], "data": rows}, nil
}
