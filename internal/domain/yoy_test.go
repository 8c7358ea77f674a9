package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearOverYear(t *testing.T) {
	changes := YearOverYear([]int{2024, 2023, 2022}, map[int]float64{
		2022: 0.30,
		2023: 0.35,
		2024: 0.28,
	})

	require.Len(t, changes, 2)

	assert.Equal(t, 2023, changes[0].From)
	assert.Equal(t, 2024, changes[0].To)
	require.NotNil(t, changes[0].Delta)
	assert.InDelta(t, -0.07, *changes[0].Delta, 1e-9)

	assert.Equal(t, 2022, changes[1].From)
	assert.Equal(t, 2023, changes[1].To)
	require.NotNil(t, changes[1].Delta)
	assert.InDelta(t, 0.05, *changes[1].Delta, 1e-9)
}

func TestYearOverYear_MissingYearIsUndefined(t *testing.T) {
	changes := YearOverYear([]int{2024, 2023, 2022}, map[int]float64{
		2024: 0.28,
		2022: 0.30,
	})

	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].Delta)
	assert.Nil(t, changes[1].Delta)
}

func TestYearOverYear_SingleYear(t *testing.T) {
	assert.Nil(t, YearOverYear([]int{2024}, map[int]float64{2024: 0.1}))
}

func TestPercentageDelta(t *testing.T) {
	tests := []struct {
		name         string
		newer, older *float64
		want         *float64
	}{
		{"increase", ptr(0.456), ptr(0.123), ptr(0.33)},
		{"decrease", ptr(0.10), ptr(0.30), ptr(-0.20)},
		{"no change", ptr(0.5), ptr(0.5), ptr(0)},
		{"newer missing", nil, ptr(0.3), nil},
		{"older missing", ptr(0.3), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentageDelta(tt.newer, tt.older)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}
