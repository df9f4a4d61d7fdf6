// Package report turns aggregation table snapshots into per-region summaries
// and renders them as text, JSON, or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/climate-report/internal/domain"
)

// Extreme is a temperature extreme and when it was observed.
type Extreme struct {
	Fahrenheit float64   `json:"fahrenheit" yaml:"fahrenheit"`
	Kelvin     float64   `json:"kelvin" yaml:"kelvin"`
	At         time.Time `json:"at" yaml:"at"`
}

// RegionSummary holds the derived, one-decimal statistics for one region.
type RegionSummary struct {
	Region           string  `json:"region" yaml:"region"`
	Records          uint64  `json:"records" yaml:"records"`
	AvgHumidity      float64 `json:"avg_humidity_pct" yaml:"avg_humidity_pct"`
	AvgTemperatureF  float64 `json:"avg_temperature_f" yaml:"avg_temperature_f"`
	MaxTemperature   Extreme `json:"max_temperature" yaml:"max_temperature"`
	MinTemperature   Extreme `json:"min_temperature" yaml:"min_temperature"`
	LightningStrikes uint64  `json:"lightning_strikes" yaml:"lightning_strikes"`
	SnowRecords      uint64  `json:"snow_records" yaml:"snow_records"`
	AvgCloudCover    float64 `json:"avg_cloud_cover_pct" yaml:"avg_cloud_cover_pct"`
}

// Report is the complete output of one aggregation run.
type Report struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Regions     []RegionSummary `json:"regions" yaml:"regions"`
}

// Build derives summaries from a table snapshot. Each mean is computed once
// from the accumulated sums. Times are expressed in loc (time.Local when nil).
func Build(runID string, generatedAt time.Time, accs []domain.RegionAccumulator, loc *time.Location) Report {
	if loc == nil {
		loc = time.Local
	}
	rep := Report{
		RunID:       runID,
		GeneratedAt: generatedAt.In(loc),
		Regions:     make([]RegionSummary, 0, len(accs)),
	}
	for _, acc := range accs {
		rep.Regions = append(rep.Regions, summarize(acc, loc))
	}
	return rep
}

func summarize(acc domain.RegionAccumulator, loc *time.Location) RegionSummary {
	s := RegionSummary{
		Region:           acc.Code,
		Records:          acc.RecordCount,
		AvgHumidity:      round1(acc.MeanHumidity()),
		AvgCloudCover:    round1(acc.MeanCloudCover()),
		LightningStrikes: acc.LightningCount,
		SnowRecords:      acc.SnowCount,
	}
	if acc.RecordCount == 0 {
		return s
	}
	s.AvgTemperatureF = round1(domain.KelvinToFahrenheit(acc.MeanTemperature()))
	s.MaxTemperature = Extreme{
		Fahrenheit: round1(domain.KelvinToFahrenheit(acc.MaxTemp)),
		Kelvin:     acc.MaxTemp,
		At:         acc.MaxTempTime().In(loc),
	}
	s.MinTemperature = Extreme{
		Fahrenheit: round1(domain.KelvinToFahrenheit(acc.MinTemp)),
		Kelvin:     acc.MinTemp,
		At:         acc.MinTempTime().In(loc),
	}
	return s
}

// round1 rounds to one decimal place exactly as %.1f would print it.
func round1(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Render writes the report in the named format: "text", "json", or "yaml".
func Render(w io.Writer, rep Report, format string) error {
	switch format {
	case "text":
		return RenderText(w, rep)
	case "json":
		return RenderJSON(w, rep)
	case "yaml":
		return RenderYAML(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// RenderText writes the human-readable report, one block per region in
// first-seen order. Timestamps use the ctime layout.
func RenderText(w io.Writer, rep Report) error {
	codes := make([]string, len(rep.Regions))
	for i, r := range rep.Regions {
		codes[i] = r.Region
	}

	var b strings.Builder
	fmt.Fprintf(&b, "States found: %s\n", strings.Join(codes, " "))
	for _, r := range rep.Regions {
		fmt.Fprintf(&b, "-- State: %s --\n", r.Region)
		fmt.Fprintf(&b, "Number of Records: %d\n", r.Records)
		fmt.Fprintf(&b, "Average Humidity: %.1f%%\n", r.AvgHumidity)
		fmt.Fprintf(&b, "Average Temperature: %.1fF\n", r.AvgTemperatureF)
		fmt.Fprintf(&b, "Max Temperature: %.1fF\n", r.MaxTemperature.Fahrenheit)
		fmt.Fprintf(&b, "Max Temperature on: %s\n", r.MaxTemperature.At.Format(time.ANSIC))
		fmt.Fprintf(&b, "Min Temperature: %.1fF\n", r.MinTemperature.Fahrenheit)
		fmt.Fprintf(&b, "Min Temperature on: %s\n", r.MinTemperature.At.Format(time.ANSIC))
		fmt.Fprintf(&b, "Lightning Strikes: %d\n", r.LightningStrikes)
		fmt.Fprintf(&b, "Records with Snow Cover: %d\n", r.SnowRecords)
		fmt.Fprintf(&b, "Average Cloud Cover: %.1f%%\n", r.AvgCloudCover)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// RenderYAML writes the report as a YAML document.
func RenderYAML(w io.Writer, rep Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}
