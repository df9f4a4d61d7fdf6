package domain

import (
	"math"
	"time"
)

// compensatedSum is a Neumaier running sum. It keeps the rounding error of
// long float64 accumulations bounded independently of record count.
type compensatedSum struct {
	sum float64
	c   float64
}

func (s *compensatedSum) add(v float64) {
	t := s.sum + v
	if math.Abs(s.sum) >= math.Abs(v) {
		s.c += (s.sum - t) + v
	} else {
		s.c += (v - t) + s.sum
	}
	s.sum = t
}

func (s compensatedSum) value() float64 {
	return s.sum + s.c
}

func (s *compensatedSum) merge(o compensatedSum) {
	s.add(o.sum)
	s.add(o.c)
}

// RegionAccumulator holds running statistics for a single region code.
// Accumulators are owned by a Table; values returned by Table.All are copies.
type RegionAccumulator struct {
	Code           string
	RecordCount    uint64
	LightningCount uint64
	SnowCount      uint64

	MaxTemp   float64 // Kelvin
	MaxTempAt int64   // seconds since epoch
	MinTemp   float64 // Kelvin
	MinTempAt int64   // seconds since epoch

	humidity    compensatedSum
	cloudCover  compensatedSum
	temperature compensatedSum
}

func newRegionAccumulator(code string) *RegionAccumulator {
	return &RegionAccumulator{
		Code:    code,
		MaxTemp: -math.MaxFloat64,
		MinTemp: math.MaxFloat64,
	}
}

// Apply folds one observation into the accumulator. Extremes are replaced only
// on a strictly greater (or smaller) temperature, so ties keep the timestamp of
// the observation applied first.
func (a *RegionAccumulator) Apply(obs Observation) {
	a.RecordCount++
	a.humidity.add(obs.Humidity)
	a.cloudCover.add(obs.CloudCover)
	a.temperature.add(obs.Temperature)
	if obs.Lightning {
		a.LightningCount++
	}
	if obs.Snow {
		a.SnowCount++
	}

	if obs.Temperature > a.MaxTemp {
		a.MaxTemp = obs.Temperature
		a.MaxTempAt = obs.TimestampSeconds()
	}
	if obs.Temperature < a.MinTemp {
		a.MinTemp = obs.Temperature
		a.MinTempAt = obs.TimestampSeconds()
	}
}

// Merge folds another accumulator for the same region into a, as when partial
// results from independent shards are combined. The receiver is treated as
// the earlier shard: on equal extremes its timestamps are kept.
func (a *RegionAccumulator) Merge(o RegionAccumulator) {
	a.RecordCount += o.RecordCount
	a.LightningCount += o.LightningCount
	a.SnowCount += o.SnowCount
	a.humidity.merge(o.humidity)
	a.cloudCover.merge(o.cloudCover)
	a.temperature.merge(o.temperature)

	if o.RecordCount == 0 {
		return
	}
	if o.MaxTemp > a.MaxTemp {
		a.MaxTemp = o.MaxTemp
		a.MaxTempAt = o.MaxTempAt
	}
	if o.MinTemp < a.MinTemp {
		a.MinTemp = o.MinTemp
		a.MinTempAt = o.MinTempAt
	}
}

func (a RegionAccumulator) HumiditySum() float64    { return a.humidity.value() }
func (a RegionAccumulator) CloudCoverSum() float64  { return a.cloudCover.value() }
func (a RegionAccumulator) TemperatureSum() float64 { return a.temperature.value() }

// MeanHumidity returns 0 for an accumulator with no records.
func (a RegionAccumulator) MeanHumidity() float64 {
	return a.mean(a.HumiditySum())
}

// MeanCloudCover returns 0 for an accumulator with no records.
func (a RegionAccumulator) MeanCloudCover() float64 {
	return a.mean(a.CloudCoverSum())
}

// MeanTemperature returns the mean in Kelvin, or 0 with no records.
func (a RegionAccumulator) MeanTemperature() float64 {
	return a.mean(a.TemperatureSum())
}

func (a RegionAccumulator) mean(sum float64) float64 {
	if a.RecordCount == 0 {
		return 0
	}
	return sum / float64(a.RecordCount)
}

func (a RegionAccumulator) MaxTempTime() time.Time { return time.Unix(a.MaxTempAt, 0) }
func (a RegionAccumulator) MinTempTime() time.Time { return time.Unix(a.MinTempAt, 0) }

// KelvinToFahrenheit converts a surface temperature for reporting.
func KelvinToFahrenheit(k float64) float64 {
	return (k-273.15)*9/5 + 32
}
