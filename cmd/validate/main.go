// Command validate scans TDV climate observation files and reports, per file,
// how many lines fail structural, range, and geohash checks. A phase fails
// when its failure ratio exceeds the tolerance.
//
// Usage:
//
//	go run ./cmd/validate -tolerance 0.01 data/data_tn.tdv data/data_wa.tdv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/climate-report/internal/domain"
	"github.com/couchcryptid/climate-report/internal/pipeline"
)

// maxExamples bounds the detail lines printed per failing phase.
const maxExamples = 5

// phase tracks failures for one validation phase of one file.
type phase struct {
	name     string
	failures int
	examples []string
}

func (p *phase) failf(lineNum int, format string, args ...any) {
	p.failures++
	if len(p.examples) < maxExamples {
		p.examples = append(p.examples, fmt.Sprintf("line %d: %s", lineNum, fmt.Sprintf(format, args...)))
	}
}

func (p *phase) passed(lines int, tolerance float64) bool {
	if p.failures == 0 {
		return true
	}
	return lines > 0 && float64(p.failures)/float64(lines) <= tolerance
}

// fileResult is the outcome of scanning one file.
type fileResult struct {
	path      string
	lines     int
	accepted  int
	regions   map[string]int
	structure phase
	ranges    phase
	geohash   phase
}

func (r *fileResult) phases() []*phase {
	return []*phase{&r.structure, &r.ranges, &r.geohash}
}

func main() {
	tolerance := flag.Float64("tolerance", 0, "maximum fraction of lines a phase may fail and still pass")
	maxLine := flag.Int("max-line", domain.DefaultMaxLineLength, "maximum record length in bytes, newline included")
	flag.Parse()

	if flag.NArg() == 0 || *tolerance < 0 || *tolerance > 1 || *maxLine <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(flag.Args(), *tolerance, *maxLine, os.Stdout, os.Stderr))
}

func run(paths []string, tolerance float64, maxLine int, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "=== Climate Data Validation ===")

	allPassed := true
	for _, path := range paths {
		res, err := scanFile(path, maxLine)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: %s: %v\n", path, err)
			allPassed = false
			continue
		}
		if !report(stdout, res, tolerance) {
			allPassed = false
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(stdout, "\nValidation FAILED.")
	return 1
}

func scanFile(path string, maxLine int) (*fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	res := &fileResult{
		path:      path,
		regions:   make(map[string]int),
		structure: phase{name: "Structure (fields, length, types)"},
		ranges:    phase{name: "Ranges (humidity, cloud cover, temperature)"},
		geohash:   phase{name: "Geohash decodes to coordinates"},
	}

	err = pipeline.EachLine(f, maxLine, func(line string, overflow bool) error {
		res.lines++
		if overflow {
			res.structure.failf(res.lines, "%v", domain.ErrLineTooLong)
			return nil
		}
		checkLine(res, line, maxLine)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return res, nil
}

func checkLine(res *fileResult, line string, maxLine int) {
	obs, err := domain.ParseLine(line, maxLine)
	if err != nil {
		var rej *domain.RejectError
		detail := err.Error()
		if errors.As(err, &rej) && rej.Field != "" {
			detail = fmt.Sprintf("%s: %s", rej.Field, rej.Detail)
		}
		if domain.ReasonOf(err) == domain.ReasonOutOfRange {
			res.ranges.failf(res.lines, "%s", detail)
		} else {
			res.structure.failf(res.lines, "%s", detail)
		}
		return
	}

	if _, _, ok := obs.Coordinates(); !ok {
		res.geohash.failf(res.lines, "geohash %q is not valid base32", obs.Geohash)
	}
	res.accepted++
	res.regions[obs.Region]++
}

// report prints one file's phase table and failure details and returns
// whether every phase passed.
func report(w io.Writer, res *fileResult, tolerance float64) bool {
	fmt.Fprintf(w, "\n%s\n", res.path)

	allPassed := true
	for _, p := range res.phases() {
		status := "\033[32mPASS\033[0m"
		if !p.passed(res.lines, tolerance) {
			status = fmt.Sprintf("\033[31mFAIL (%d of %d lines)\033[0m", p.failures, res.lines)
			allPassed = false
		} else if p.failures > 0 {
			status = fmt.Sprintf("\033[32mPASS\033[0m (%d within tolerance)", p.failures)
		}
		fmt.Fprintf(w, "  %-46s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "  Lines: %d, accepted: %d, regions: %d\n", res.lines, res.accepted, len(res.regions))

	if res.lines == 0 {
		fmt.Fprintln(w, "  no records found")
		return false
	}

	for _, p := range res.phases() {
		if p.failures == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  --- %s ---\n", p.name)
		for i, e := range p.examples {
			fmt.Fprintf(w, "    [%d] %s\n", i+1, e)
		}
	}
	return allPassed
}
