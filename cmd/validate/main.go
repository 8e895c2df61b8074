// Command validate checks the integrity of a raw sanitation event fixture
// before it is used by the pipeline tests. It verifies record keys, runs every
// record through the domain parser, and checks that parsed events land inside
// New York City with well-formed zone IDs.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture data/mock/sanitation_events_sample.json \
//	  -allow-fail 59200002
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

var zoneIDRe = regexp.MustCompile(`^(MN|BX|BK|QN|SI)-\d{2}$`)

// nycBounds is a loose envelope around the five boroughs.
var nycBounds = domain.BBox{MinLat: 40.47, MinLng: -74.27, MaxLat: 40.93, MaxLng: -73.68}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "", "path to the raw JSON fixture")
	allowFail := flag.String("allow-fail", "", "comma-separated unique keys expected to fail parsing")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixture, splitKeys(*allowFail)); code != 0 {
		os.Exit(code)
	}
}

func run(path string, allowFail map[string]bool) int {
	fmt.Println("=== Sanitation Fixture Validation ===")
	fmt.Println()

	records, err := loadJSON[domain.RawRecord](path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	parsePhase, events := validateParsing(records, allowFail)
	phases := []*phase{
		validateRecordKeys(records),
		parsePhase,
		validateGeography(events),
		validateDeterminism(records, allowFail),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw, %d parsed\n", len(records), len(events))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func splitKeys(s string) map[string]bool {
	out := map[string]bool{}
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = true
		}
	}
	return out
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// validateRecordKeys checks that keys are unique and record types known.
func validateRecordKeys(records []domain.RawRecord) *phase {
	p := &phase{name: "Record keys and types"}
	seen := map[string]int{}
	for i, rec := range records {
		if rec.UniqueKey != "" {
			if prev, ok := seen[rec.UniqueKey]; ok {
				p.errorf("record %d: duplicate unique_key %q (first at %d)", i, rec.UniqueKey, prev)
			}
			seen[rec.UniqueKey] = i
		}
		switch strings.ToLower(rec.RecordType) {
		case "", "service_request", "collection":
		default:
			p.errorf("record %d (%s): unknown record_type %q", i, rec.UniqueKey, rec.RecordType)
		}
		if strings.EqualFold(rec.RecordType, "collection") && rec.Tonnage == "" {
			p.errorf("record %d (%s): collection without tonnage", i, rec.UniqueKey)
		}
	}
	return p
}

// validateParsing runs each record through the domain parser without a
// fallback timestamp, so rows without a usable created date fail here.
func validateParsing(records []domain.RawRecord, allowFail map[string]bool) (*phase, []domain.Event) {
	p := &phase{name: "Domain parsing"}
	events := make([]domain.Event, 0, len(records))
	for i, rec := range records {
		e, err := domain.FromRecord(rec, time.Time{})
		switch {
		case err != nil && !allowFail[rec.UniqueKey]:
			p.errorf("record %d (%s): %v", i, rec.UniqueKey, err)
		case err == nil && allowFail[rec.UniqueKey]:
			p.errorf("record %d (%s): expected parse failure, got event %s", i, rec.UniqueKey, e.ID)
		case err == nil:
			events = append(events, e)
		}
	}
	return p, events
}

// validateGeography checks coordinates and zone identifiers.
func validateGeography(events []domain.Event) *phase {
	p := &phase{name: "Coordinates and zones"}
	for _, e := range events {
		if e.Location != nil && !nycBounds.Contains(*e.Location) {
			p.errorf("%s: location %.5f,%.5f outside NYC", e.ID, e.Location.Lat, e.Location.Lng)
		}
		if e.Kind == domain.KindServiceRequest && e.Location == nil && e.Address == "" {
			p.errorf("%s: neither coordinates nor address", e.ID)
		}
		if e.ZoneID != "" && !zoneIDRe.MatchString(e.ZoneID) {
			p.errorf("%s: malformed zone_id %q", e.ID, e.ZoneID)
		}
		if e.Kind == domain.KindCollection && e.ZoneID == "" {
			p.errorf("%s: collection without zone", e.ID)
		}
	}
	return p
}

// validateDeterminism parses every record twice and compares IDs, which also
// covers generated IDs for records without a unique key.
func validateDeterminism(records []domain.RawRecord, allowFail map[string]bool) *phase {
	p := &phase{name: "ID determinism"}
	ids := map[string]string{}
	for i, rec := range records {
		if allowFail[rec.UniqueKey] {
			continue
		}
		a, errA := domain.FromRecord(rec, time.Time{})
		b, errB := domain.FromRecord(rec, time.Time{})
		if errA != nil || errB != nil {
			continue
		}
		if a.ID != b.ID {
			p.errorf("record %d: unstable id %s vs %s", i, a.ID, b.ID)
		}
		if prev, ok := ids[a.ID]; ok && prev != rec.UniqueKey {
			p.errorf("record %d: id %s collides with record %q", i, a.ID, prev)
		}
		ids[a.ID] = rec.UniqueKey
	}
	return p
}
