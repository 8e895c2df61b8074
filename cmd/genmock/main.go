// Command genmock converts NYC Open Data CSV exports (311 service requests and
// DSNY collection tonnage) into the raw JSON fixture consumed by the pipeline
// tests. Every row is run through the domain parser so the printed stats match
// what the service would store.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -requests-csv ../sanitation-data/311_sanitation_sample.csv \
//	  -collections-csv ../sanitation-data/dsny_collections_sample.csv \
//	  -out data/mock/sanitation_events_sample.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

// fallbackTime stands in for the Kafka message timestamp when a row has no
// usable created date.
var fallbackTime = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

// csvColumns maps RawRecord fields to the header names of one export.
type csvColumns struct {
	recordType string
	uniqueKey  string
	created    string
	complaint  string
	wasteType  string
	borough    string
	board      string
	zone       string
	lat        string
	lng        string
	address    string
	priority   string
	status     string
	tonnage    string
}

var requestColumns = csvColumns{
	recordType: "service_request",
	uniqueKey:  "Unique Key",
	created:    "Created Date",
	complaint:  "Complaint Type",
	borough:    "Borough",
	board:      "Community Board",
	lat:        "Latitude",
	lng:        "Longitude",
	address:    "Incident Address",
	priority:   "Priority",
	status:     "Status",
}

var collectionColumns = csvColumns{
	recordType: "collection",
	uniqueKey:  "Collection ID",
	created:    "Date",
	wasteType:  "Waste Type",
	borough:    "Borough",
	board:      "Community District",
	zone:       "Zone",
	tonnage:    "Tonnage",
	status:     "Status",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	requestsCSV := flag.String("requests-csv", "", "311 service request CSV export")
	collectionsCSV := flag.String("collections-csv", "", "DSNY collection CSV export (optional)")
	out := flag.String("out", "", "output path for the raw JSON fixture")
	flag.Parse()

	if *requestsCSV == "" || *out == "" {
		flag.Usage()
		return errors.New("missing required flags: -requests-csv, -out")
	}

	records, err := readCSV(*requestsCSV, requestColumns)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *requestsCSV, err)
	}
	log.Printf("service requests: %d records", len(records))

	if *collectionsCSV != "" {
		collections, err := readCSV(*collectionsCSV, collectionColumns)
		if err != nil {
			return fmt.Errorf("processing %s: %w", *collectionsCSV, err)
		}
		log.Printf("collections: %d records", len(collections))
		records = append(records, collections...)
	}

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d records)", *out, len(records))

	printStats(records)
	return nil
}

func readCSV(path string, cols csvColumns) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(h)] = i
	}

	recs := make([]domain.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		recs = append(recs, domain.RawRecord{
			UniqueKey:       get(row, colIdx, cols.uniqueKey),
			RecordType:      cols.recordType,
			CreatedDate:     get(row, colIdx, cols.created),
			ComplaintType:   get(row, colIdx, cols.complaint),
			WasteType:       get(row, colIdx, cols.wasteType),
			Borough:         get(row, colIdx, cols.borough),
			CommunityBoard:  get(row, colIdx, cols.board),
			ZoneID:          get(row, colIdx, cols.zone),
			Latitude:        get(row, colIdx, cols.lat),
			Longitude:       get(row, colIdx, cols.lng),
			IncidentAddress: get(row, colIdx, cols.address),
			Priority:        get(row, colIdx, cols.priority),
			Status:          get(row, colIdx, cols.status),
			Tonnage:         get(row, colIdx, cols.tonnage),
		})
	}
	return recs, nil
}

// get returns the trimmed cell for col; an unmapped column yields "".
func get(row []string, idx map[string]int, col string) string {
	if col == "" {
		return ""
	}
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func printCounts(label string, m map[string]int) {
	fmt.Printf("%s (%d):", label, len(m))
	for _, kc := range sortedCounts(m) {
		fmt.Printf(" %s=%d", kc.key, kc.count)
	}
	fmt.Println()
}

// printStats parses every record the way the pipeline does and prints the
// counts the fixture-backed tests assert on.
func printStats(records []domain.RawRecord) {
	kinds := map[string]int{}
	categories := map[string]int{}
	zones := map[string]int{}
	overflowByZone := map[string]int{}
	var failed []string
	var withLocation, urgent int
	var tonnage float64

	for _, rec := range records {
		e, err := domain.FromRecord(rec, time.Time{})
		if err != nil {
			failed = append(failed, rec.UniqueKey)
			continue
		}
		kinds[string(e.Kind)]++
		categories[e.Category]++
		if e.ZoneID != "" {
			zones[e.ZoneID]++
		}
		if e.HasLocation() {
			withLocation++
		}
		if e.IsUrgent() {
			urgent++
		}
		if e.Kind == domain.KindServiceRequest && e.Category == domain.CategoryOverflow {
			overflowByZone[e.ZoneID]++
		}
		tonnage += e.TonnageOrZero()
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d, parsed: %d, failed: %d %v\n", len(records), len(records)-len(failed), len(failed), failed)
	fmt.Printf("With location: %d, urgent: %d\n", withLocation, urgent)
	fmt.Printf("Total tonnage: %.1f\n", tonnage)
	printCounts("By kind", kinds)
	printCounts("By category", categories)
	printCounts("By zone", zones)
	printCounts("Overflow by zone", overflowByZone)

	// Rows without created dates fall back to the message timestamp in the
	// pipeline; report how many would need it.
	var needFallback int
	for _, rec := range records {
		if _, err := domain.FromRecord(rec, time.Time{}); err != nil {
			if _, err := domain.FromRecord(rec, fallbackTime); err == nil {
				needFallback++
			}
		}
	}
	fmt.Printf("Rows needing message timestamp: %d\n", needFallback)
}
