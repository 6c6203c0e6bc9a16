package optionmath_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spxdesk/spread-engine/internal/optionmath"
)

func TestComputeVerticalPayoff_PutCredit(t *testing.T) {
	res, err := optionmath.ComputeVerticalPayoff(
		optionmath.SidePutCredit,
		decimal.NewFromFloat(100),
		decimal.NewFromFloat(95),
		decimal.NewFromFloat(1.5),
		1,
		decimal.NewFromInt(100),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.MaxProfit.Equal(decimal.NewFromFloat(150)) {
		t.Errorf("max_profit = %s, want 150", res.MaxProfit)
	}
	if !res.MaxLoss.Equal(decimal.NewFromFloat(350)) {
		t.Errorf("max_loss = %s, want 350", res.MaxLoss)
	}
	if res.RoR == nil {
		t.Fatalf("ror is nil")
	}
	if diff := *res.RoR - (150.0 / 350.0); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ror = %v, want ~0.42857", *res.RoR)
	}
	if !res.Breakeven.Equal(decimal.NewFromFloat(98.5)) {
		t.Errorf("breakeven = %s, want 98.5", res.Breakeven)
	}
	if diff := res.CreditPct - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("credit_pct = %v, want 0.3", res.CreditPct)
	}
	if !res.Width.Equal(decimal.NewFromFloat(5)) {
		t.Errorf("width = %s, want 5", res.Width)
	}
}

func TestComputeVerticalPayoff_InvalidGeometry(t *testing.T) {
	cases := []struct {
		name   string
		short  float64
		long   float64
		credit float64
	}{
		{"zero width", 100, 100, 1},
		{"credit exceeds width", 100, 95, 6},
		{"negative credit", 100, 95, -1},
		{"zero credit", 100, 95, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := optionmath.ComputeVerticalPayoff(
				optionmath.SidePutCredit,
				decimal.NewFromFloat(c.short),
				decimal.NewFromFloat(c.long),
				decimal.NewFromFloat(c.credit),
				1,
				decimal.NewFromInt(100),
			)
			if err != optionmath.ErrInvalidSpreadGeometry {
				t.Fatalf("expected ErrInvalidSpreadGeometry, got %v", err)
			}
		})
	}
}

func TestComputeIronPayoff_Breakevens(t *testing.T) {
	res, err := optionmath.ComputeIronPayoff(
		decimal.NewFromFloat(95),
		decimal.NewFromFloat(105),
		decimal.NewFromFloat(5),
		decimal.NewFromFloat(1.5),
		1,
		decimal.NewFromInt(100),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.BreakevenLow.Equal(decimal.NewFromFloat(93.5)) {
		t.Errorf("breakeven_low = %s, want 93.5", res.BreakevenLow)
	}
	if !res.BreakevenHigh.Equal(decimal.NewFromFloat(106.5)) {
		t.Errorf("breakeven_high = %s, want 106.5", res.BreakevenHigh)
	}
}

func TestComputeIronPayoff_InvertedStrikesInvalid(t *testing.T) {
	_, err := optionmath.ComputeIronPayoff(
		decimal.NewFromFloat(105),
		decimal.NewFromFloat(95),
		decimal.NewFromFloat(5),
		decimal.NewFromFloat(1.5),
		1,
		decimal.NewFromInt(100),
	)
	if err != optionmath.ErrInvalidSpreadGeometry {
		t.Fatalf("expected ErrInvalidSpreadGeometry, got %v", err)
	}
}

func TestMaxProfitPlusMaxLossEqualsWidthTimesMultiplier(t *testing.T) {
	width := decimal.NewFromFloat(5)
	credit := decimal.NewFromFloat(1.5)
	qty := 2

	maxProfit := optionmath.ComputeMaxProfit(credit, qty)
	maxLoss := optionmath.ComputeMaxLoss(width, credit, qty)

	sum := maxProfit.Add(maxLoss)
	want := width.Mul(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(int64(qty)))
	if !sum.Equal(want) {
		t.Errorf("max_profit+max_loss = %s, want %s", sum, want)
	}
}

func TestExpirationPnLClampedByWidth(t *testing.T) {
	s := optionmath.Spread{
		Side:   optionmath.SidePutCredit,
		Short:  decimal.NewFromFloat(100),
		Long:   decimal.NewFromFloat(95),
		Credit: decimal.NewFromFloat(1.5),
	}

	deepITM := optionmath.ExpirationPnL(s, decimal.NewFromFloat(50))
	maxLossWant := decimal.NewFromFloat(-350) // (1.5-5)*100
	if !deepITM.Equal(maxLossWant) {
		t.Errorf("deep ITM pnl = %s, want %s", deepITM, maxLossWant)
	}

	otm := optionmath.ExpirationPnL(s, decimal.NewFromFloat(200))
	maxProfitWant := decimal.NewFromFloat(150)
	if !otm.Equal(maxProfitWant) {
		t.Errorf("OTM pnl = %s, want %s", otm, maxProfitWant)
	}
}

func TestComputePoPAndTouch_ZeroDTEIsLowConfidenceNilPoP(t *testing.T) {
	res := optionmath.ComputePoPAndTouch(optionmath.PopAndTouchInput{
		Side:  "PUT_CREDIT",
		Short: 95,
		Spot:  100,
		DTE:   0,
		IV:    0.2,
	})
	if res.PoP != nil {
		t.Errorf("expected nil PoP for dte=0")
	}
	if res.Confidence != "LOW" {
		t.Errorf("confidence = %s, want LOW", res.Confidence)
	}
}

func TestComputePoPAndTouch_HighConfidenceWindow(t *testing.T) {
	res := optionmath.ComputePoPAndTouch(optionmath.PopAndTouchInput{
		Side:  "PUT_CREDIT",
		Short: 95,
		Spot:  100,
		DTE:   14,
		IV:    0.2,
	})
	if res.Confidence != "HIGH" {
		t.Errorf("confidence = %s, want HIGH", res.Confidence)
	}
	if res.PoP == nil {
		t.Fatalf("expected non-nil PoP")
	}
	if *res.PoP <= 0.5 {
		t.Errorf("PoP for OTM put-credit should be > 0.5, got %v", *res.PoP)
	}
}

func TestEstimateEVVertical_Deterministic(t *testing.T) {
	s := optionmath.Spread{
		Side:   optionmath.SidePutCredit,
		Short:  decimal.NewFromFloat(100),
		Long:   decimal.NewFromFloat(95),
		Credit: decimal.NewFromFloat(1.5),
	}
	in := optionmath.EVInput{Spot: 100, DTE: 30, IV: 0.2, SeedKey: "test-seed", NumPaths: 2000}

	ev1 := optionmath.EstimateEVVertical(s, in)
	ev2 := optionmath.EstimateEVVertical(s, in)

	if ev1 != ev2 {
		t.Errorf("EV not deterministic: %v != %v", ev1, ev2)
	}
}
