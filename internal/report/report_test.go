package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/climate-report/internal/domain"
)

const testRunID = "3f2c9a4e-8d7b-4c1a-9e6f-0b5d2a7c1e90"

var generatedAt = time.Date(2015, time.December, 31, 12, 0, 0, 0, time.UTC)

func buildTable(t *testing.T, lines ...string) *domain.Table {
	t.Helper()
	table := domain.NewTable(0)
	for _, line := range lines {
		obs, err := domain.ParseLine(line, domain.DefaultMaxLineLength)
		require.NoError(t, err)
		require.NoError(t, table.Apply(obs))
	}
	return table
}

func sampleReport(t *testing.T) Report {
	t.Helper()
	table := buildTable(t,
		"CA\t1428300000000\t9prcjqk3yc80\t93.0\t0.0\t100.0\t0.0\t95644.0\t277.58716\n",
		"WA\t1435510800000\tc23nb62w20st\t30.0\t0.0\t0.0\t1.0\t101000.0\t300.0\n",
		"WA\t1451448000000\tc23nb62w20st\t80.0\t1.0\t90.0\t0.0\t101000.0\t290.0\n",
	)
	return Build(testRunID, generatedAt, table.All(), time.UTC)
}

func TestBuild(t *testing.T) {
	rep := sampleReport(t)

	require.Len(t, rep.Regions, 2)
	assert.Equal(t, testRunID, rep.RunID)
	assert.Equal(t, generatedAt, rep.GeneratedAt)

	want := RegionSummary{
		Region:          "WA",
		Records:         2,
		AvgHumidity:     55.0,
		AvgTemperatureF: 71.3,
		MaxTemperature: Extreme{
			Fahrenheit: 80.3,
			Kelvin:     300.0,
			At:         time.Date(2015, time.June, 28, 17, 0, 0, 0, time.UTC),
		},
		MinTemperature: Extreme{
			Fahrenheit: 62.3,
			Kelvin:     290.0,
			At:         time.Date(2015, time.December, 30, 4, 0, 0, 0, time.UTC),
		},
		LightningStrikes: 1,
		SnowRecords:      1,
		AvgCloudCover:    45.0,
	}
	if diff := cmp.Diff(want, rep.Regions[1]); diff != "" {
		t.Fatalf("WA summary mismatch (-want +got):\n%s", diff)
	}

	ca := rep.Regions[0]
	assert.Equal(t, "CA", ca.Region)
	assert.Equal(t, 40.0, ca.AvgTemperatureF)
	assert.Equal(t, ca.MaxTemperature, ca.MinTemperature)
}

func TestBuild_EmptyAccumulatorGuarded(t *testing.T) {
	table := domain.NewTable(0)
	_, err := table.FindOrCreate("AK")
	require.NoError(t, err)

	rep := Build(testRunID, generatedAt, table.All(), nil)
	require.Len(t, rep.Regions, 1)
	assert.Zero(t, rep.Regions[0].Records)
	assert.Zero(t, rep.Regions[0].AvgHumidity)
	assert.Zero(t, rep.Regions[0].AvgTemperatureF)
	assert.True(t, rep.Regions[0].MaxTemperature.At.IsZero())
}

func TestBuild_RepeatedBuildsAreStable(t *testing.T) {
	table := buildTable(t, "WA\t1435510800000\tc23nb62w20st\t33.3\t0.0\t10.1\t1.0\t101000.0\t301.7\n")
	first := Build(testRunID, generatedAt, table.All(), time.UTC)
	second := Build(testRunID, generatedAt, table.All(), time.UTC)
	assert.Equal(t, first, second)
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{39.986888, 40.0},
		{49.44, 49.4},
		{-11.15, -11.2},
		{0.25, 0.2},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round1(tt.in), "round1(%v)", tt.in)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, sampleReport(t)))

	want := `States found: CA WA
-- State: CA --
Number of Records: 1
Average Humidity: 93.0%
Average Temperature: 40.0F
Max Temperature: 40.0F
Max Temperature on: Mon Apr  6 06:00:00 2015
Min Temperature: 40.0F
Min Temperature on: Mon Apr  6 06:00:00 2015
Lightning Strikes: 0
Records with Snow Cover: 0
Average Cloud Cover: 100.0%
-- State: WA --
Number of Records: 2
Average Humidity: 55.0%
Average Temperature: 71.3F
Max Temperature: 80.3F
Max Temperature on: Sun Jun 28 17:00:00 2015
Min Temperature: 62.3F
Min Temperature on: Wed Dec 30 04:00:00 2015
Lightning Strikes: 1
Records with Snow Cover: 1
Average Cloud Cover: 45.0%
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("text report mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), "json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testRunID, decoded["run_id"])

	regions, ok := decoded["regions"].([]any)
	require.True(t, ok)
	require.Len(t, regions, 2)
	wa := regions[1].(map[string]any)
	assert.Equal(t, "WA", wa["region"])
	assert.InDelta(t, 71.3, wa["avg_temperature_f"], 0)
	assert.Contains(t, buf.String(), `"at": "2015-06-28T17:00:00Z"`)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), "yaml"))

	var decoded struct {
		RunID   string `yaml:"run_id"`
		Regions []struct {
			Region  string `yaml:"region"`
			Records int    `yaml:"records"`
		} `yaml:"regions"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testRunID, decoded.RunID)
	require.Len(t, decoded.Regions, 2)
	assert.Equal(t, "CA", decoded.Regions[0].Region)
	assert.Equal(t, 2, decoded.Regions[1].Records)
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, Report{}, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
