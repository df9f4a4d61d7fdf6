// Command genmock writes deterministic synthetic TDV climate observations for
// local runs and test fixtures. The same flags always produce the same file.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/data_multi.tdv \
//	  -regions CA,WA,TN -records 5000 -seed 42 -dirty 0.01
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/couchcryptid/climate-report/internal/domain"
)

var defaultStart = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// regionProfile bounds the synthetic values for one region code.
type regionProfile struct {
	lat, lon     float64
	spread       float64
	meanKelvin   float64
	swingKelvin  float64
	snowBelowK   float64
	meanHumidity float64
}

// Known regions get plausible centers; anything else is placed from its code.
var profiles = map[string]regionProfile{
	"CA": {lat: 37.0, lon: -120.0, spread: 3.0, meanKelvin: 290, swingKelvin: 12, snowBelowK: 271, meanHumidity: 55},
	"WA": {lat: 47.4, lon: -120.5, spread: 2.0, meanKelvin: 283, swingKelvin: 14, snowBelowK: 272, meanHumidity: 70},
	"TN": {lat: 35.8, lon: -86.4, spread: 2.0, meanKelvin: 288, swingKelvin: 13, snowBelowK: 271, meanHumidity: 65},
	"MT": {lat: 47.0, lon: -109.6, spread: 3.0, meanKelvin: 279, swingKelvin: 18, snowBelowK: 273, meanHumidity: 50},
}

type options struct {
	regions []string
	records int
	seed    uint64
	dirty   float64
	start   time.Time
	step    time.Duration
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the TDV file")
	regions := flag.String("regions", "CA,WA,TN", "comma-separated two-letter region codes")
	records := flag.Int("records", 1000, "number of lines to write")
	seed := flag.Uint64("seed", 1, "random seed")
	dirty := flag.Float64("dirty", 0, "fraction of lines to corrupt (malformed or out of range)")
	start := flag.String("start", defaultStart.Format(time.RFC3339), "timestamp of the first observation (RFC3339)")
	step := flag.Duration("step", time.Hour, "time between consecutive observations")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	startAt, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	opts := options{
		regions: splitRegions(*regions),
		records: *records,
		seed:    *seed,
		dirty:   *dirty,
		start:   startAt,
		step:    *step,
	}
	if err := opts.validate(); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(f)
	n, err := generate(w, opts)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %d lines (%d corrupted) to %s", opts.records, n, *out)
	return nil
}

func splitRegions(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (o options) validate() error {
	if len(o.regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	for _, r := range o.regions {
		if len(r) != domain.RegionCodeLength {
			return fmt.Errorf("region %q must be %d characters", r, domain.RegionCodeLength)
		}
	}
	if o.records < 0 {
		return fmt.Errorf("-records must not be negative")
	}
	if o.dirty < 0 || o.dirty > 1 {
		return fmt.Errorf("-dirty must be between 0 and 1")
	}
	if o.step <= 0 {
		return fmt.Errorf("-step must be positive")
	}
	return nil
}

// generate writes opts.records lines and returns how many were corrupted.
func generate(w io.Writer, opts options) (int, error) {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	corrupted := 0
	for i := range opts.records {
		region := opts.regions[rng.IntN(len(opts.regions))]
		at := opts.start.Add(time.Duration(i) * opts.step)
		line := observationLine(rng, region, profileFor(region), at)
		if opts.dirty > 0 && rng.Float64() < opts.dirty {
			line = corrupt(rng, line)
			corrupted++
		}
		if _, err := io.WriteString(w, line); err != nil {
			return corrupted, err
		}
	}
	return corrupted, nil
}

func profileFor(region string) regionProfile {
	if p, ok := profiles[region]; ok {
		return p
	}
	return regionProfile{
		lat:          25 + float64(region[0]%24),
		lon:          -124 + float64(region[1]%57),
		spread:       2,
		meanKelvin:   285,
		swingKelvin:  15,
		snowBelowK:   272,
		meanHumidity: 60,
	}
}

func observationLine(rng *rand.Rand, region string, p regionProfile, at time.Time) string {
	lat := p.lat + (rng.Float64()*2-1)*p.spread
	lon := p.lon + (rng.Float64()*2-1)*p.spread

	// Seasonal swing peaking mid-year plus noise.
	season := -cosYear(at)
	kelvin := p.meanKelvin + season*p.swingKelvin + rng.NormFloat64()*3
	humidity := clamp(p.meanHumidity+rng.NormFloat64()*15, 0, 100)
	cloud := clamp(rng.Float64()*100, 0, 100)
	snow := 0.0
	if kelvin < p.snowBelowK && rng.Float64() < 0.6 {
		snow = 1
	}
	lightning := 0.0
	if cloud > 80 && rng.Float64() < 0.1 {
		lightning = 1
	}
	pressure := 101325 + rng.NormFloat64()*1200

	return fmt.Sprintf("%s\t%d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.5f\n",
		region, at.UnixMilli(), geohash.Encode(lat, lon),
		humidity, snow, cloud, lightning, pressure, kelvin)
}

// corrupt replaces a good line with one the parser rejects.
func corrupt(rng *rand.Rand, line string) string {
	fields := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	switch rng.IntN(4) {
	case 0:
		fields[3] = "150.0"
	case 1:
		fields[8] = "-4.2"
	case 2:
		fields = fields[:5]
	default:
		fields[1] = "yesterday"
	}
	return strings.Join(fields, "\t") + "\n"
}

func cosYear(t time.Time) float64 {
	day := float64(t.YearDay()-1) / 365.0
	return math.Cos(2 * math.Pi * day)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
