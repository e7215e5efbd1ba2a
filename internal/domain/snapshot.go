package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PnL is the profit-and-loss block of a snapshot.
type PnL struct {
	Total      Num `json:"total"`
	Realized   Num `json:"realized"`
	Unrealized Num `json:"unrealized"`
}

// Stats holds trade outcome counters. Winrate is a 0..1 fraction.
type Stats struct {
	Winrate Num `json:"winrate"`
	Wins    Num `json:"wins"`
	Losses  Num `json:"losses"`
}

// Position is one open holding. AssetID is its identity.
type Position struct {
	AssetID string `json:"asset_id"`
	Shares  Num    `json:"shares"`
	AvgPx   Num    `json:"avg_px"`
}

// Order is a resting order. Orders have no identity on the console side and
// are always rendered positionally.
type Order struct {
	ID      string `json:"id,omitempty"`
	AssetID string `json:"asset_id,omitempty"`
	Side    string `json:"side"`
	Price   Num    `json:"price"`
	Shares  Num    `json:"shares"`
	AgeSec  Num    `json:"age_sec"`
}

// Snapshot is one complete description of bot, market and portfolio state.
// Every message on the snapshot stream replaces the previous one entirely.
type Snapshot struct {
	Running    bool       `json:"running"`
	Status     string     `json:"status,omitempty"`
	Error      string     `json:"error,omitempty"`
	TS         Num        `json:"ts"`
	Slug       string     `json:"slug,omitempty"`
	TTE        Num        `json:"tte"`
	Balance    Num        `json:"balance"`
	PnL        PnL        `json:"pnl"`
	Stats      Stats      `json:"stats"`
	BetFrac    Num        `json:"bet_frac"`
	YesBid     Num        `json:"yes_bid"`
	YesAsk     Num        `json:"yes_ask"`
	NoBid      Num        `json:"no_bid"`
	NoAsk      Num        `json:"no_ask"`
	Positions  []Position `json:"positions"`
	OpenOrders []Order    `json:"open_orders"`
	TradeSeq   Num        `json:"trade_seq"`
}

// DecodeSnapshot parses one text frame. Numeric fields are lenient (see Num);
// structural problems such as a non-object payload, a non-boolean running
// flag, or a positions field that is not an array are reported as
// ErrMalformedSnapshot.
func DecodeSnapshot(frame []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedSnapshot)
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return snap, nil
}

// Encode marshals the snapshot into the wire format.
func (s Snapshot) Encode() ([]byte, error) {
	if s.Positions == nil {
		s.Positions = []Position{}
	}
	if s.OpenOrders == nil {
		s.OpenOrders = []Order{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("domain: encode snapshot: %w", err)
	}
	return data, nil
}
