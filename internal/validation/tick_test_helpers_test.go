package validation

import (
	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/shopspring/decimal"
)

func tickRecordWithBidAsk(price float64, bid, ask decimal.Decimal) marketdata.TickRecord {
	return marketdata.TickRecord{
		Timestamp: 1704067200000,
		Price:     decimal.NewFromFloat(price),
		Volume:    decimal.NewFromInt(1),
		Bid:       &bid,
		Ask:       &ask,
	}
}
