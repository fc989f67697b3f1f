package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existing(value, period string) Observation {
	return Observation{Value: value, ValueType: ValueTypeExists, TimePeriod: period}
}

func missing(period string) Observation {
	return Observation{Value: "-", ValueType: "MISSING", TimePeriod: period}
}

func TestParseLocaleFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
	}{
		{"comma decimal", "217,6", floatPtr(217.6)},
		{"plain integer", "42", floatPtr(42)},
		{"period sentinel", ".", nil},
		{"dash sentinel", "-", nil},
		{"empty string", "", nil},
		{"whitespace only", "  ", nil},
		{"non-numeric", "abc", nil},
		{"trimmed", " 95,5 ", floatPtr(95.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLocaleFloat(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestLatestValue(t *testing.T) {
	t.Run("first existing entry wins", func(t *testing.T) {
		obs := []Observation{
			existing("217,6", "2023"),
			missing("2022"),
		}
		got := LatestValue(obs)
		require.NotNil(t, got)
		assert.InDelta(t, 217.6, *got, 1e-9)
	})

	t.Run("skips suppressed entries", func(t *testing.T) {
		obs := []Observation{
			missing("2023"),
			existing("180,2", "2022"),
		}
		got := LatestValue(obs)
		require.NotNil(t, got)
		assert.InDelta(t, 180.2, *got, 1e-9)
	})

	t.Run("out-of-order input is re-sorted newest first", func(t *testing.T) {
		obs := []Observation{
			existing("100,0", "2021"),
			existing("200,0", "2023"),
			existing("150,0", "2022"),
		}
		got := LatestValue(obs)
		require.NotNil(t, got)
		assert.InDelta(t, 200.0, *got, 1e-9)
	})

	t.Run("no existing entries", func(t *testing.T) {
		obs := []Observation{missing("2023"), missing("2022")}
		assert.Nil(t, LatestValue(obs))
	})

	t.Run("existing but unparseable is absent", func(t *testing.T) {
		obs := []Observation{existing(".", "2023")}
		assert.Nil(t, LatestValue(obs))
	})

	t.Run("empty series", func(t *testing.T) {
		assert.Nil(t, LatestValue(nil))
	})
}

func TestHistory(t *testing.T) {
	t.Run("truncates to five entries newest first", func(t *testing.T) {
		var obs []Observation
		periods := []string{"2025", "2024", "2023", "2022", "2021", "2020", "2019", "2018"}
		for _, p := range periods {
			obs = append(obs, existing("200,5", p))
		}

		got := History(obs)
		require.Len(t, got, 5)
		for i, want := range periods[:5] {
			assert.Equal(t, want, got[i].Period)
			assert.InDelta(t, 200.5, got[i].Value, 1e-9)
		}
	})

	t.Run("filters suppressed entries before truncating", func(t *testing.T) {
		obs := []Observation{
			existing("210,0", "2024"),
			missing("2023"),
			existing("190,0", "2022"),
		}
		got := History(obs)
		require.Len(t, got, 2)
		assert.Equal(t, "2024", got[0].Period)
		assert.Equal(t, "2022", got[1].Period)
	})

	t.Run("unparseable value coerced to zero inside history", func(t *testing.T) {
		obs := []Observation{{Value: "abc", ValueType: ValueTypeExists, TimePeriod: "2024"}}
		got := History(obs)
		require.Len(t, got, 1)
		assert.Zero(t, got[0].Value)
	})

	t.Run("empty series yields no history", func(t *testing.T) {
		assert.Empty(t, History(nil))
	})
}

func TestSchoolUnitRefValidate(t *testing.T) {
	tests := []struct {
		name string
		unit SchoolUnitRef
		want bool
	}{
		{"valid", SchoolUnitRef{Code: "1", Latitude: "59.33", Longitude: "18.06"}, true},
		{"abroad", SchoolUnitRef{Code: "2", Latitude: "59.33", Longitude: "18.06", UnitAbroad: true}, false},
		{"zero coordinates", SchoolUnitRef{Code: "3", Latitude: "0", Longitude: "0"}, false},
		{"unparseable latitude", SchoolUnitRef{Code: "4", Latitude: "n/a", Longitude: "18.06"}, false},
		{"empty coordinates", SchoolUnitRef{Code: "5"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.unit.Validate())
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
