package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	utc := time.Date(2025, 6, 2, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, Date{Year: 2025, Month: time.June, Day: 2}, DateOf(utc))

	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, Date{Year: 2025, Month: time.June, Day: 3}, DateOf(utc.In(tokyo)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", d.String())

	_, err = ParseDate("01/06/2025")
	assert.Error(t, err)
}

func TestDate_Before(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2024-12-31", "2025-01-01", true},
		{"2025-01-31", "2025-02-01", true},
		{"2025-02-01", "2025-02-02", true},
		{"2025-02-02", "2025-02-02", false},
		{"2025-03-01", "2025-02-28", false},
	}

	for _, tt := range tests {
		a, _ := ParseDate(tt.a)
		b, _ := ParseDate(tt.b)
		assert.Equal(t, tt.want, a.Before(b), "%s before %s", tt.a, tt.b)
	}
}

func TestDate_JSON(t *testing.T) {
	data, err := json.Marshal(DailyDebits{Date: Date{Year: 2025, Month: time.June, Day: 2}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2025-06-02"`)

	var decoded DailyDebits
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Date.Day)
}
