// Command validate performs offline integrity checks over the pipeline's
// output files: the raw snapshot, the fetch metadata, and the processed
// snapshot. It verifies record uniqueness, category membership, snapshot
// ordering, metadata consistency, and cross-file counts.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw data/raw_schools.json \
//	  -metadata data/fetch_metadata.json \
//	  -processed data/schools.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/skolkartan/school-data-etl/internal/domain"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawPath := flag.String("raw", "data/raw_schools.json", "raw snapshot file")
	metadataPath := flag.String("metadata", "data/fetch_metadata.json", "fetch metadata file")
	processedPath := flag.String("processed", "data/schools.json", "processed snapshot file")
	flag.Parse()

	raws := readRaw(*rawPath)
	md := readMetadata(*metadataPath)
	snap := readProcessed(*processedPath)

	phases := []*phase{
		validateRaw(raws, md),
		validateProcessed(snap),
		validateCross(raws, snap),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func readRaw(path string) []domain.RawSchool {
	var raws []domain.RawSchool
	readInto(path, &raws)
	return raws
}

func readMetadata(path string) *domain.FetchMetadata {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	var md domain.FetchMetadata
	readInto(path, &md)
	return &md
}

func readProcessed(path string) domain.ProcessedSnapshot {
	var snap domain.ProcessedSnapshot
	readInto(path, &snap)
	return snap
}

func readInto(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	if err := json.Unmarshal(data, v); err != nil {
		fmt.Fprintf(os.Stderr, "decode %s: %v\n", path, err)
		os.Exit(1)
	}
}

// validateRaw checks the raw snapshot against the fetch metadata.
func validateRaw(raws []domain.RawSchool, md *domain.FetchMetadata) *phase {
	p := &phase{name: "raw snapshot"}

	seen := map[string]bool{}
	details, gr, gy := 0, 0, 0
	for _, r := range raws {
		if r.SchoolUnit.Code == "" {
			p.errorf("raw record without a unit code")
			continue
		}
		if seen[r.SchoolUnit.Code] {
			p.errorf("duplicate unit code %s", r.SchoolUnit.Code)
		}
		seen[r.SchoolUnit.Code] = true
		if r.Details != nil {
			details++
		}
		if r.StatisticsGr != nil {
			gr++
		}
		if r.StatisticsGy != nil {
			gy++
		}
	}

	if md == nil {
		p.errorf("fetch metadata file missing")
		return p
	}
	if md.TotalUnits != len(raws) {
		p.errorf("metadata totalUnits %d != %d raw records", md.TotalUnits, len(raws))
	}
	if md.WithDetails != details {
		p.errorf("metadata withDetails %d != %d counted", md.WithDetails, details)
	}
	if md.WithGrStatistics != gr {
		p.errorf("metadata withGrStatistics %d != %d counted", md.WithGrStatistics, gr)
	}
	if md.WithGyStatistics != gy {
		p.errorf("metadata withGyStatistics %d != %d counted", md.WithGyStatistics, gy)
	}
	return p
}

// validateProcessed checks the published snapshot's internal invariants.
func validateProcessed(snap domain.ProcessedSnapshot) *phase {
	p := &phase{name: "processed snapshot"}

	valid := map[domain.Category]bool{}
	for _, c := range domain.Categories {
		valid[c] = true
	}

	seen := map[string]bool{}
	counts := map[domain.Category]int{}
	for _, s := range snap.Schools {
		if s.ID == "" {
			p.errorf("school without an id")
			continue
		}
		if seen[s.ID] {
			p.errorf("duplicate school id %s", s.ID)
		}
		seen[s.ID] = true

		if !valid[s.Category] {
			p.errorf("school %s has unknown category %q", s.ID, s.Category)
		}
		counts[s.Category]++

		if s.Latitude == 0 || s.Longitude == 0 {
			p.errorf("school %s has zero coordinates", s.ID)
		}
		if s.Municipality == "" {
			p.errorf("school %s has empty municipality (want %q sentinel)", s.ID, domain.MunicipalityUnknown)
		}
		if len(s.Statistics.MeritHistory) > 5 {
			p.errorf("school %s merit history has %d entries, max 5", s.ID, len(s.Statistics.MeritHistory))
		}
	}

	if snap.Metadata.TotalSchools != len(snap.Schools) {
		p.errorf("metadata totalSchools %d != %d records", snap.Metadata.TotalSchools, len(snap.Schools))
	}
	for c, n := range counts {
		if snap.Metadata.Categories[c] != n {
			p.errorf("metadata category %s count %d != %d counted", c, snap.Metadata.Categories[c], n)
		}
	}
	if snap.Metadata.ProcessedAt.Before(snap.Metadata.FetchedAt) {
		p.errorf("processedAt precedes fetchedAt")
	}

	validateOrdering(p, snap.Schools)
	return p
}

// validateOrdering re-sorts a copy and compares IDs position by position.
func validateOrdering(p *phase, schools []domain.NormalizedSchool) {
	sorted := make([]domain.NormalizedSchool, len(schools))
	copy(sorted, schools)
	domain.SortSchools(sorted)
	for i := range schools {
		if schools[i].ID != sorted[i].ID {
			p.errorf("snapshot ordering violated at position %d: have %s, want %s", i, schools[i].ID, sorted[i].ID)
			return
		}
	}
}

// validateCross checks that the processed snapshot covers the raw records.
func validateCross(raws []domain.RawSchool, snap domain.ProcessedSnapshot) *phase {
	p := &phase{name: "raw/processed consistency"}

	if len(raws) != len(snap.Schools) {
		p.errorf("%d raw records but %d processed schools", len(raws), len(snap.Schools))
	}

	processed := map[string]bool{}
	for _, s := range snap.Schools {
		processed[s.ID] = true
	}
	for _, r := range raws {
		if !processed[r.SchoolUnit.Code] {
			p.errorf("raw unit %s missing from processed snapshot", r.SchoolUnit.Code)
		}
	}
	return p
}
