package units

import (
	"testing"

	"inventory_manager/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conv(productID, unitID, name, factor string) domain.UnitConversion {
	return domain.UnitConversion{
		ProductID:        productID,
		UnitID:           unitID,
		UnitName:         name,
		ConversionFactor: decimal.RequireFromString(factor),
	}
}

func sampleTable() *Table {
	return NewTable([]domain.UnitConversion{
		conv("soap", "pcs", "Pcs", "1"),
		conv("soap", "dozen", "Dozen", "12"),
		conv("rice", "kg", "Kg", "1"),
		conv("soap", "gross", "Gross", "144"),
		conv("rice", "sack", "Sack", "25"),
	})
}

func TestTable_ConversionsFor(t *testing.T) {
	tbl := sampleTable()

	got := tbl.ConversionsFor("soap")
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, "soap", c.ProductID)
	}
	assert.Equal(t, "pcs", got[0].UnitID)
	assert.Equal(t, "gross", got[2].UnitID)

	assert.Empty(t, tbl.ConversionsFor("unknown"))

	// callers get their own copy
	got[0].UnitName = "changed"
	assert.Equal(t, "Pcs", tbl.ConversionsFor("soap")[0].UnitName)
}

func TestTable_FactorOf(t *testing.T) {
	tbl := sampleTable()

	assert.True(t, tbl.FactorOf("soap", "dozen").Equal(decimal.NewFromInt(12)))
	assert.True(t, tbl.FactorOf("rice", "sack").Equal(decimal.NewFromInt(25)))

	t.Run("missing unit falls back to 1", func(t *testing.T) {
		assert.True(t, tbl.FactorOf("soap", "sack").Equal(decimal.NewFromInt(1)))
		assert.True(t, tbl.FactorOf("unknown", "").Equal(decimal.NewFromInt(1)))
	})
}

func TestTable_BaseUnit(t *testing.T) {
	tbl := sampleTable()

	base, ok := tbl.BaseUnit("rice")
	require.True(t, ok)
	assert.Equal(t, "Kg", base.UnitName)

	_, ok = NewTable([]domain.UnitConversion{conv("x", "box", "Box", "10")}).BaseUnit("x")
	assert.False(t, ok)
}

func TestTable_ToBase(t *testing.T) {
	tbl := NewTable([]domain.UnitConversion{
		conv("soap", "pcs", "Pcs", "1"),
		conv("soap", "dozen", "Dozen", "12"),
		conv("oil", "half", "Half Liter", "0.5"),
	})

	n, err := tbl.ToBase("soap", "dozen", 3)
	require.NoError(t, err)
	assert.Equal(t, 36, n)

	n, err = tbl.ToBase("oil", "half", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // 1.5 rounds half away from zero

	_, err = tbl.ToBase("soap", "sack", 1)
	assert.True(t, domain.IsConversionNotFoundError(err))
}

func TestBreakdown(t *testing.T) {
	lusin := []domain.UnitConversion{
		conv("p", "lb", "Lusin Besar", "144"),
		conv("p", "l", "Lusin", "12"),
		conv("p", "pcs", "Pcs", "1"),
	}
	dozen := []domain.UnitConversion{
		conv("p", "dozen", "Dozen", "12"),
		conv("p", "pcs", "Pcs", "1"),
	}

	tests := []struct {
		name        string
		total       int
		conversions []domain.UnitConversion
		want        []Part
	}{
		{
			name:  "exact largest unit",
			total: 144, conversions: lusin,
			want: []Part{{1, "Lusin Besar"}},
		},
		{
			name:  "dozen and pieces",
			total: 17, conversions: dozen,
			want: []Part{{1, "Dozen"}, {5, "Pcs"}},
		},
		{
			name:  "every unit used",
			total: 161, conversions: lusin,
			want: []Part{{1, "Lusin Besar"}, {1, "Lusin"}, {5, "Pcs"}},
		},
		{
			name:  "zero stock names the base unit",
			total: 0, conversions: dozen,
			want: []Part{{0, "Pcs"}},
		},
		{
			name:  "zero stock without base unit",
			total: 0, conversions: []domain.UnitConversion{conv("p", "box", "Box", "10")},
			want: []Part{{0, BaseUnitLabel}},
		},
		{
			name:  "no conversions",
			total: 42, conversions: nil,
			want: []Part{{42, BaseUnitLabel}},
		},
		{
			name:  "no conversions zero stock",
			total: 0, conversions: nil,
			want: []Part{{0, BaseUnitLabel}},
		},
		{
			name:  "non-positive factors are skipped",
			total: 30,
			conversions: []domain.UnitConversion{
				conv("p", "bad", "Broken", "0"),
				conv("p", "neg", "Negative", "-5"),
				conv("p", "box", "Box", "10"),
			},
			want: []Part{{3, "Box"}},
		},
		{
			name:  "remainder too small for any unit",
			total: 5, conversions: []domain.UnitConversion{conv("p", "box", "Box", "10")},
			want: nil,
		},
		{
			name:  "fractional factor keeps exact remainder",
			total: 7,
			conversions: []domain.UnitConversion{
				conv("p", "pack", "Pack", "2.5"),
				conv("p", "pcs", "Pcs", "1"),
			},
			want: []Part{{2, "Pack"}, {2, "Pcs"}},
		},
		{
			name:  "ties ordered by unit name",
			total: 24,
			conversions: []domain.UnitConversion{
				conv("p", "z", "Zak", "12"),
				conv("p", "b", "Box", "12"),
			},
			want: []Part{{2, "Box"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Breakdown(tt.total, tt.conversions))
		})
	}
}

func TestBreakdown_DoesNotReorderInput(t *testing.T) {
	in := []domain.UnitConversion{
		conv("p", "pcs", "Pcs", "1"),
		conv("p", "dozen", "Dozen", "12"),
	}
	Breakdown(30, in)
	assert.Equal(t, "pcs", in[0].UnitID)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1 Dozen, 5 Pcs", Format([]Part{{1, "Dozen"}, {5, "Pcs"}}))
	assert.Equal(t, "0 Pcs", Format([]Part{{0, "Pcs"}}))
	assert.Equal(t, "", Format(nil))
}
