// Package domain models NOAA surface climate observations and their per-region
// aggregation.
//
// # Data Source
//
// Observations arrive as tab-delimited value (TDV) files, one record per line,
// produced by an upstream NOAA collection job. There is no header row and no
// escaping: a tab always separates fields and a newline always ends a record.
//
// # TDV Layout
//
//	CA	1428300000000	9prcjqk3yc80	93.0	0.0	100.0	0.0	95644.0	277.58716
//
// Fields, in order:
//
//	region code      two-letter state code, e.g. "CA", "TX"
//	timestamp        observation time in milliseconds since the UNIX epoch
//	geolocation      geohash string, up to 12 characters
//	humidity         relative humidity, 0–100 %
//	snow             snow cover flag; any value > 0 means snow present
//	cloud cover      0–100 %
//	lightning        lightning strike flag; any value > 0 means a strike
//	pressure         surface pressure in Pa (parsed, not aggregated)
//	temperature      surface temperature in Kelvin, never negative
//
// # Rejection
//
// [ParseLine] rejects a record outright when it is too long, has the wrong
// shape, or carries a humidity, cloud cover, or temperature outside its
// physical domain. Rejections are values, not failures: callers skip the line
// and keep going. See [RejectError] for the reasons.
//
// # Aggregation
//
// A [Table] owns one [RegionAccumulator] per distinct region code, kept in the
// order codes were first seen. Extremes use strict comparisons, so the first
// observation to reach a given max or min keeps its timestamp. Timestamps are
// stored in whole seconds (milliseconds / 1000, truncated).
package domain
