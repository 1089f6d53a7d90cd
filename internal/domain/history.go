package domain

import (
	"fmt"
	"time"
)

const historyIDLayout = "2006-01-02T15:04:05Z"

// HistoricalRecord is an immutable audit entry for one observed pair.
type HistoricalRecord struct {
	ID           string         `json:"id"`
	FromCurrency string         `json:"from_currency"`
	ToCurrency   string         `json:"to_currency"`
	Rate         float64        `json:"rate"`
	Timestamp    time.Time      `json:"timestamp"`
	Source       string         `json:"source"`
	Meta         map[string]any `json:"meta"`
}

// HistoryID is derived from the pair and a second-precision UTC timestamp.
// Two observations of the same pair within one second share an id.
func HistoryID(from, to string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s", NormalizeCode(from), NormalizeCode(to), ts.UTC().Format(historyIDLayout))
}

func NewHistoricalRecord(p RatePair, meta map[string]any) HistoricalRecord {
	if meta == nil {
		meta = map[string]any{}
	}
	ts := p.UpdatedAt.UTC()
	return HistoricalRecord{
		ID:           HistoryID(p.From, p.To, ts),
		FromCurrency: NormalizeCode(p.From),
		ToCurrency:   NormalizeCode(p.To),
		Rate:         p.Rate,
		Timestamp:    ts,
		Source:       p.Source,
		Meta:         meta,
	}
}
