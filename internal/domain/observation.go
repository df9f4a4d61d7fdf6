package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMaxLineLength is the longest accepted line in bytes, counting the
	// trailing newline. Matches the historical 100-byte line buffer, which
	// rejected anything of 99 bytes or more.
	DefaultMaxLineLength = 98

	// RegionCodeLength is the fixed width of a region code.
	RegionCodeLength = 2

	// MaxGeohashLength bounds the geolocation field.
	MaxGeohashLength = 12

	fieldCount = 9
)

// Rejection sentinels. Every error returned by ParseLine wraps exactly one.
var (
	ErrLineTooLong   = errors.New("line too long")
	ErrMalformedLine = errors.New("malformed line")
	ErrOutOfRange    = errors.New("value out of range")
)

// Reason is a stable, label-safe name for a rejection cause.
type Reason string

const (
	ReasonLineTooLong Reason = "line_too_long"
	ReasonMalformed   Reason = "malformed"
	ReasonOutOfRange  Reason = "out_of_range"
)

// RejectError describes why a line was not turned into an Observation.
type RejectError struct {
	Reason Reason
	Field  string
	Detail string
	err    error
}

func (e *RejectError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.err, e.Detail)
	}
	return fmt.Sprintf("%v: %s: %s", e.err, e.Field, e.Detail)
}

func (e *RejectError) Unwrap() error { return e.err }

// ReasonOf returns the rejection reason carried by err, or "" when err is not
// a rejection.
func ReasonOf(err error) Reason {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

func reject(sentinel error, reason Reason, field, format string, args ...any) *RejectError {
	return &RejectError{
		Reason: reason,
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
		err:    sentinel,
	}
}

// Observation is one validated climate record.
type Observation struct {
	Region      string
	TimestampMs uint64
	Geohash     string
	Humidity    float64
	Snow        bool
	CloudCover  float64
	Lightning   bool
	Pressure    float64
	Temperature float64 // Kelvin
}

// TimestampSeconds converts the source millisecond timestamp to whole seconds,
// discarding sub-second precision.
func (o Observation) TimestampSeconds() int64 {
	return int64(o.TimestampMs / 1000)
}

// ParseLine converts one raw TDV line into an Observation. The line may still
// carry its trailing newline; maxLen counts it. A non-positive maxLen selects
// DefaultMaxLineLength.
//
// ParseLine never returns a partially populated Observation: on any error the
// zero value is returned alongside a *RejectError.
func ParseLine(line string, maxLen int) (Observation, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLineLength
	}
	if len(line) > maxLen {
		return Observation{}, reject(ErrLineTooLong, ReasonLineTooLong, "", "%d bytes exceeds limit of %d", len(line), maxLen)
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return Observation{}, reject(ErrMalformedLine, ReasonMalformed, "", "expected %d tab-separated fields, got %d", fieldCount, len(fields))
	}

	obs, err := parseFields(fields)
	if err != nil {
		return Observation{}, err
	}
	if err := validateRanges(obs); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

func parseFields(fields []string) (Observation, error) {
	region := fields[0]
	if len(region) != RegionCodeLength || strings.ContainsAny(region, " \t\r\n\v\f") {
		return Observation{}, reject(ErrMalformedLine, ReasonMalformed, "region", "want %d non-space bytes, got %q", RegionCodeLength, region)
	}

	ts, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return Observation{}, reject(ErrMalformedLine, ReasonMalformed, "timestamp", "%q is not an unsigned integer", fields[1])
	}

	geo := strings.TrimSpace(fields[2])
	if geo == "" || len(geo) > MaxGeohashLength || strings.ContainsAny(geo, " \t\v\f") {
		return Observation{}, reject(ErrMalformedLine, ReasonMalformed, "geohash", "want 1-%d non-space bytes, got %q", MaxGeohashLength, fields[2])
	}

	names := [...]string{"humidity", "snow", "cloud_cover", "lightning", "pressure", "temperature"}
	var nums [len(names)]float64
	for i, name := range names {
		raw := strings.TrimSpace(fields[3+i])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Observation{}, reject(ErrMalformedLine, ReasonMalformed, name, "%q is not a number", fields[3+i])
		}
		nums[i] = v
	}

	return Observation{
		Region:      region,
		TimestampMs: ts,
		Geohash:     geo,
		Humidity:    nums[0],
		Snow:        nums[1] > 0,
		CloudCover:  nums[2],
		Lightning:   nums[3] > 0,
		Pressure:    nums[4],
		Temperature: nums[5],
	}, nil
}

func validateRanges(obs Observation) error {
	if !isPercent(obs.Humidity) {
		return reject(ErrOutOfRange, ReasonOutOfRange, "humidity", "%v not in [0,100]", obs.Humidity)
	}
	if !isPercent(obs.CloudCover) {
		return reject(ErrOutOfRange, ReasonOutOfRange, "cloud_cover", "%v not in [0,100]", obs.CloudCover)
	}
	if math.IsNaN(obs.Temperature) || math.IsInf(obs.Temperature, 0) || obs.Temperature < 0 {
		return reject(ErrOutOfRange, ReasonOutOfRange, "temperature", "%v K is not a valid temperature", obs.Temperature)
	}
	return nil
}

// isPercent is false for NaN since every comparison with NaN fails.
func isPercent(v float64) bool {
	return v >= 0 && v <= 100
}
