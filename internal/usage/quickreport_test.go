package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuickReport(t *testing.T) {
	payload := `{
		"report": {
			"reportname": "q",
			"time-slices": [1704067200000, 1704153600000, 1704240000000],
			"report-data": [[{"resourceURI": "services/Transport", "metric-type": "RequestCount", "data": [10, null, 0]}]]
		}
	}`

	s, err := ParseQuickReport("prod", "Transport", []byte(payload))
	require.NoError(t, err)
	require.Len(t, s, 3)

	assert.Equal(t, Sample{Site: "prod", Directory: "Transport", Time: day("2024-01-01"), Count: 10, Valid: true}, s[0])
	assert.Equal(t, Sample{Site: "prod", Directory: "Transport", Time: day("2024-01-02")}, s[1])
	assert.True(t, s[2].Valid)
	assert.Equal(t, [][]string{
		{"prod", "Transport", "2024-01-01", "10"},
		{"prod", "Transport", "2024-01-02", ""},
		{"prod", "Transport", "2024-01-03", "0"},
	}, s.Rows())
}

func TestParseQuickReport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"invalid json", `{`, "invalid json"},
		{"server error", `{"error": {"code": 498, "message": "Invalid token."}}`, "Invalid token."},
		{"no slices", `{"report": {}}`, "time-slices"},
		{"no data", `{"report": {"time-slices": [1], "report-data": []}}`, "report-data"},
		{"length mismatch", `{"report": {"time-slices": [1, 2], "report-data": [[{"data": [1]}]]}}`, "2 time slices but 1 counts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuickReport("s", "d", []byte(tt.payload))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
