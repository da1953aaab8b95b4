package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEffectiveVolumeScalesByLotMultiplier(t *testing.T) {
	t.Parallel()
	m := SymbolMapping{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD.m", LotMultiplier: decimal.NewFromFloat(0.5)}

	got := m.EffectiveVolume(decimal.NewFromFloat(1.0))
	want := decimal.NewFromFloat(0.5)
	if !got.Equal(want) {
		t.Errorf("EffectiveVolume(1.0) = %s, want %s", got, want)
	}
}

func TestEffectiveVolumeClampsToMinimum(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name          string
		masterVolume  decimal.Decimal
		lotMultiplier decimal.Decimal
	}{
		{"scaled result below floor", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.1)},
		{"tiny multiplier on a normal lot", decimal.NewFromFloat(1.0), decimal.NewFromFloat(0.001)},
		{"zero master volume", decimal.Zero, decimal.NewFromFloat(1.0)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := SymbolMapping{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD.m", LotMultiplier: tc.lotMultiplier}
			got := m.EffectiveVolume(tc.masterVolume)
			if !got.Equal(MinSlaveVolume) {
				t.Errorf("EffectiveVolume(%s) with multiplier %s = %s, want floor %s", tc.masterVolume, tc.lotMultiplier, got, MinSlaveVolume)
			}
		})
	}
}

func TestEffectiveVolumeExactlyAtFloorIsUnaffected(t *testing.T) {
	t.Parallel()
	m := SymbolMapping{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD.m", LotMultiplier: decimal.NewFromFloat(1.0)}
	got := m.EffectiveVolume(MinSlaveVolume)
	if !got.Equal(MinSlaveVolume) {
		t.Errorf("EffectiveVolume(floor) = %s, want %s unchanged", got, MinSlaveVolume)
	}
}

func TestSideOppositeAndString(t *testing.T) {
	t.Parallel()
	if BUY.Opposite() != SELL || SELL.Opposite() != BUY {
		t.Fatal("Opposite must swap BUY/SELL")
	}
	if BUY.String() != "BUY" || SELL.String() != "SELL" {
		t.Fatalf("String() = %q/%q, want BUY/SELL", BUY.String(), SELL.String())
	}
}

func TestTimeInForceAlwaysReportsGTC(t *testing.T) {
	t.Parallel()
	if TimeGTC.String() != "GTC" {
		t.Fatalf("TimeGTC.String() = %q, want GTC", TimeGTC.String())
	}
	var zero TimeInForce
	if zero.String() != "GTC" {
		t.Fatalf("zero-value TimeInForce.String() = %q, want GTC", zero.String())
	}
}
