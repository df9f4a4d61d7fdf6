package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-report/internal/domain"
)

func testOptions() options {
	return options{
		regions: []string{"CA", "WA", "ZZ"},
		records: 500,
		seed:    42,
		start:   defaultStart,
		step:    time.Hour,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	_, err := generate(&a, testOptions())
	require.NoError(t, err)
	_, err = generate(&b, testOptions())
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())

	other := testOptions()
	other.seed = 7
	var c bytes.Buffer
	_, err = generate(&c, other)
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), c.String())
}

func TestGenerate_CleanLinesParse(t *testing.T) {
	var buf bytes.Buffer
	corrupted, err := generate(&buf, testOptions())
	require.NoError(t, err)
	assert.Zero(t, corrupted)

	table := domain.NewTable(0)
	lines := strings.SplitAfter(buf.String(), "\n")
	lines = lines[:len(lines)-1]
	require.Len(t, lines, 500)
	for i, line := range lines {
		obs, err := domain.ParseLine(line, domain.DefaultMaxLineLength)
		require.NoError(t, err, "line %d: %q", i+1, line)
		_, _, ok := obs.Coordinates()
		assert.True(t, ok)
		require.NoError(t, table.Apply(obs))
	}

	first, err := domain.ParseLine(lines[0], 0)
	require.NoError(t, err)
	assert.Equal(t, defaultStart.Unix(), first.TimestampSeconds())
	assert.LessOrEqual(t, table.Len(), 3)
}

func TestGenerate_DirtyLinesRejected(t *testing.T) {
	opts := testOptions()
	opts.dirty = 1

	var buf bytes.Buffer
	corrupted, err := generate(&buf, opts)
	require.NoError(t, err)
	assert.Equal(t, opts.records, corrupted)

	for _, line := range strings.SplitAfter(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		_, err := domain.ParseLine(line, domain.DefaultMaxLineLength)
		assert.Error(t, err, "%q", line)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*options)
		wantErr string
	}{
		{"valid", func(*options) {}, ""},
		{"no regions", func(o *options) { o.regions = nil }, "at least one region"},
		{"long region", func(o *options) { o.regions = []string{"CAL"} }, "must be 2 characters"},
		{"negative records", func(o *options) { o.records = -1 }, "-records"},
		{"dirty above one", func(o *options) { o.dirty = 1.5 }, "-dirty"},
		{"zero step", func(o *options) { o.step = 0 }, "-step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOptions()
			tt.mutate(&o)
			err := o.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitRegions(t *testing.T) {
	assert.Equal(t, []string{"CA", "WA"}, splitRegions(" CA, ,WA,"))
}
