package domain

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is returned when a new region code arrives at a table
// that already holds its configured maximum number of regions.
var ErrCapacityExceeded = errors.New("region table capacity exceeded")

// Table is the aggregation table: one accumulator per distinct region code,
// iterated in first-seen order. A Table is not safe for concurrent mutation.
type Table struct {
	maxRegions int
	index      map[string]*RegionAccumulator
	order      []*RegionAccumulator
}

// NewTable creates an empty table. maxRegions <= 0 means unbounded.
func NewTable(maxRegions int) *Table {
	if maxRegions < 0 {
		maxRegions = 0
	}
	return &Table{
		maxRegions: maxRegions,
		index:      make(map[string]*RegionAccumulator),
	}
}

// FindOrCreate returns the accumulator for code, creating it when the code is
// new. Codes are compared exactly as received.
func (t *Table) FindOrCreate(code string) (*RegionAccumulator, error) {
	if acc, ok := t.index[code]; ok {
		return acc, nil
	}
	if t.maxRegions > 0 && len(t.order) >= t.maxRegions {
		return nil, fmt.Errorf("region %q: %w (max %d)", code, ErrCapacityExceeded, t.maxRegions)
	}

	acc := newRegionAccumulator(code)
	t.index[code] = acc
	t.order = append(t.order, acc)
	return acc, nil
}

// Apply routes an observation to its region's accumulator. On
// ErrCapacityExceeded the observation is dropped and the table is unchanged.
func (t *Table) Apply(obs Observation) error {
	acc, err := t.FindOrCreate(obs.Region)
	if err != nil {
		return err
	}
	acc.Apply(obs)
	return nil
}

// Lookup returns a copy of the accumulator for code.
func (t *Table) Lookup(code string) (RegionAccumulator, bool) {
	acc, ok := t.index[code]
	if !ok {
		return RegionAccumulator{}, false
	}
	return *acc, true
}

// All returns a snapshot of every accumulator in insertion order. The
// returned values are copies; mutating them does not affect the table.
func (t *Table) All() []RegionAccumulator {
	out := make([]RegionAccumulator, len(t.order))
	for i, acc := range t.order {
		out[i] = *acc
	}
	return out
}

// Len reports the number of distinct regions.
func (t *Table) Len() int {
	return len(t.order)
}

// Merge folds every accumulator of other into t. Regions new to t are appended
// in other's order. Capacity applies to new regions: those that do not fit are
// skipped and reported through the returned error (which wraps
// ErrCapacityExceeded); regions already present still merge.
func (t *Table) Merge(other *Table) error {
	var dropped []string
	for _, o := range other.order {
		acc, err := t.FindOrCreate(o.Code)
		if err != nil {
			dropped = append(dropped, o.Code)
			continue
		}
		acc.Merge(*o)
	}
	if len(dropped) > 0 {
		return fmt.Errorf("merge dropped regions %v: %w", dropped, ErrCapacityExceeded)
	}
	return nil
}
