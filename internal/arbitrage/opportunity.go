package arbitrage

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity is a buy-here-sell-there pairing satisfying the configured
// profit thresholds.
type Opportunity struct {
	Name                string  `json:"name"`
	BuySource           string  `json:"buy_platform"`
	BuyPrice            float64 `json:"buy_price"`
	BuyURL              string  `json:"buy_url,omitempty"`
	ReferenceGrossPrice float64 `json:"steam_price"`
	ReferenceNetPrice   float64 `json:"net_steam_price"`
	ProfitAbsolute      float64 `json:"profit_absolute"`
	ProfitRatio         float64 `json:"profit_percentage"`
	ReferenceURL        string  `json:"steam_url,omitempty"`
	ComputedAt          string  `json:"timestamp"`
}

// Batch is the result of one engine run.
type Batch struct {
	RunID              string        `json:"run_id"`
	Timestamp          string        `json:"timestamp"`
	TotalOpportunities int           `json:"total_opportunities"`
	Mode               string        `json:"mode"`
	Opportunities      []Opportunity `json:"opportunities"`
}

// NewBatch stamps a batch with a run id and timestamp.
func NewBatch(mode string, opps []Opportunity) *Batch {
	return &Batch{
		RunID:              uuid.New().String(),
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		TotalOpportunities: len(opps),
		Mode:               mode,
		Opportunities:      opps,
	}
}

// SnapshotFile is the on-disk opportunity snapshot: the current batch plus
// up to the last ten displaced ones.
type SnapshotFile struct {
	Current     *Batch   `json:"current"`
	LastUpdated string   `json:"last_updated"`
	History     []*Batch `json:"history"`
}

// maxHistory bounds the retained displaced batches.
const maxHistory = 10

// Push replaces the current batch, moving the displaced one onto history
// and truncating history to the bound.
func (s *SnapshotFile) Push(batch *Batch) {
	if s.Current != nil {
		s.History = append(s.History, s.Current)
		if len(s.History) > maxHistory {
			s.History = s.History[len(s.History)-maxHistory:]
		}
	}
	s.Current = batch
	s.LastUpdated = batch.Timestamp
}
