package datacontract_test

import (
	"testing"
	"time"

	"github.com/spxdesk/spread-engine/internal/datacontract"
)

func TestEvaluate_MarketClosedIsInactive(t *testing.T) {
	now := time.Now()
	res := datacontract.Evaluate(nil, now, true, datacontract.Options{})
	if res.Status != datacontract.Inactive {
		t.Fatalf("status = %s, want inactive", res.Status)
	}
	for _, vf := range res.Feeds {
		if vf.IsValid {
			t.Fatalf("expected all feeds invalid when inactive")
		}
	}
}

func TestEvaluate_HealthyWhenAllFresh(t *testing.T) {
	now := time.Now()
	feeds := map[datacontract.DataKey]datacontract.Feed{}
	for key := range map[datacontract.DataKey]bool{
		datacontract.UnderlyingPrice: true, datacontract.OptionChain: true, datacontract.Greeks: true,
		datacontract.IntradayCandles: true, datacontract.VWAP: true, datacontract.ATR1m5: true,
		datacontract.RealizedRange15m: true, datacontract.ExpectedMove: true, datacontract.Regime: true,
	} {
		feeds[key] = datacontract.Feed{Value: 1.0, Timestamp: now}
	}

	res := datacontract.Evaluate(feeds, now, false, datacontract.Options{})
	if res.Status != datacontract.Healthy {
		t.Fatalf("status = %s, want healthy; issues=%v", res.Status, res.Issues)
	}
}

func TestEvaluate_StaleFeedDegrades(t *testing.T) {
	now := time.Now()
	feeds := map[datacontract.DataKey]datacontract.Feed{
		datacontract.UnderlyingPrice: {Value: 1.0, Timestamp: now.Add(-1 * time.Minute)},
	}
	res := datacontract.Evaluate(feeds, now, false, datacontract.Options{})
	if res.Status != datacontract.Degraded {
		t.Fatalf("status = %s, want degraded", res.Status)
	}
	if res.Feeds[datacontract.UnderlyingPrice].IsValid {
		t.Fatalf("expected underlying_price invalid due to staleness")
	}
}
