// Command mockapi serves a synthetic school-unit universe with the same
// resource shapes as the real source API, for running the pipeline end to
// end without network access or rate-limit worries.
//
// Every 7th unit has no detail record, every 5th no gr statistics, and only
// every 4th has gy statistics, so the pipeline's degradation paths get
// exercised. With -flaky, every 10th request is answered with 429 first to
// exercise the retry path.
//
// Usage:
//
//	go run ./cmd/mockapi -addr :9090 -units 250
//	SKOLETL_API_BASE_URL=http://localhost:9090 go run ./cmd/etl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/skolkartan/school-data-etl/internal/domain"
)

const pageSize = 100

type mockAPI struct {
	units    []domain.SchoolUnitRef
	details  map[string]*domain.SchoolUnitDetails
	gr       map[string]*domain.GrStatistics
	gy       map[string]*domain.GyStatistics
	flaky    bool
	requests atomic.Int64
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	unitCount := flag.Int("units", 250, "number of synthetic school units")
	flaky := flag.Bool("flaky", false, "answer every 10th request with 429 first")
	flag.Parse()

	api := buildUniverse(*unitCount, *flaky)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /school-units", api.handleList)
	mux.HandleFunc("GET /school-units/{code}", api.handleDetails)
	mux.HandleFunc("GET /school-units/{code}/statistics/{stage}", api.handleStatistics)

	log.Printf("mock school API listening on %s with %d units", *addr, *unitCount)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// buildUniverse generates a deterministic set of units spread over a few
// municipalities and categories.
func buildUniverse(n int, flaky bool) *mockAPI {
	api := &mockAPI{
		details: make(map[string]*domain.SchoolUnitDetails),
		gr:      make(map[string]*domain.GrStatistics),
		gy:      make(map[string]*domain.GyStatistics),
		flaky:   flaky,
	}

	municipalities := []string{"Stockholm", "Göteborg", "Malmö", "Uppsala", "Örebro"}

	for i := 0; i < n; i++ {
		code := fmt.Sprintf("%08d", 10000000+i)
		name := fmt.Sprintf("Testskolan %d", i+1)
		if i%4 == 0 {
			name = fmt.Sprintf("Testgymnasiet %d", i+1)
		}

		unit := domain.SchoolUnitRef{
			Code:      code,
			Name:      name,
			Latitude:  fmt.Sprintf("%.5f", 55.6+float64(i%500)*0.01),
			Longitude: fmt.Sprintf("%.5f", 11.9+float64(i%300)*0.01),
		}
		if i%50 == 49 {
			unit.UnitAbroad = true // a few units abroad, filtered by the pipeline
		}
		api.units = append(api.units, unit)

		if i%7 != 6 {
			api.details[code] = buildDetails(code, name, municipalities[i%len(municipalities)], i)
		}
		if i%5 != 4 && i%4 != 0 {
			api.gr[code] = buildGrStatistics(i)
		}
		if i%4 == 0 {
			api.gy[code] = buildGyStatistics(i)
		}
	}
	return api
}

func buildDetails(code, name, municipality string, i int) *domain.SchoolUnitDetails {
	organizer := "Kommun"
	if i%3 == 0 {
		organizer = "Enskild"
	}
	schooling := domain.TypeOfSchooling{
		Code:        domain.SchoolingCompulsory,
		DisplayName: "Grundskola",
		SchoolYears: []string{"1", "2", "3", "4", "5", "6"},
	}
	if i%4 == 0 {
		schooling = domain.TypeOfSchooling{Code: domain.SchoolingUpperSecondary, DisplayName: "Gymnasieskola"}
	} else if i%2 == 0 {
		schooling.SchoolYears = append(schooling.SchoolYears, "7", "8", "9")
	}

	return &domain.SchoolUnitDetails{
		Code:                   code,
		Name:                   name,
		PrincipalOrganizerType: organizer,
		Addresses: []domain.Address{
			{Type: domain.AddressTypeVisiting, StreetAddress: fmt.Sprintf("Skolgatan %d", i%90+1), PostalCode: fmt.Sprintf("%d", 10000+i%89999), City: municipality},
			{Type: "POSTADRESS", StreetAddress: fmt.Sprintf("Box %d", i+1), City: municipality},
		},
		TypeOfSchooling: []domain.TypeOfSchooling{schooling},
	}
}

func series(base float64, i int) []domain.Observation {
	obs := []domain.Observation{
		{Value: localized(base + float64(i%40)), ValueType: domain.ValueTypeExists, TimePeriod: "2025"},
		{Value: localized(base + float64(i%35)), ValueType: domain.ValueTypeExists, TimePeriod: "2024"},
		{Value: "-", ValueType: "MISSING", TimePeriod: "2023"},
		{Value: localized(base + float64(i%30)), ValueType: domain.ValueTypeExists, TimePeriod: "2022"},
	}
	return obs
}

func localized(v float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.1f", v), ".", ",")
}

func buildGrStatistics(i int) *domain.GrStatistics {
	stats := &domain.GrStatistics{
		RatioOfPupils6thGradePassed: series(70, i),
		TestResultSwedish6thGrade:   series(60, i),
		StudentsPerTeacherQuota:     series(11, i%9),
		CertifiedTeachersQuota:      series(65, i),
		TotalNumberOfPupils:         series(200, i*3),
	}
	if i%2 == 0 {
		stats.AverageGradesMeritRating9thGrade = series(190, i)
		stats.RatioOfPupils9thGradeEligible = series(75, i)
	}
	return stats
}

func buildGyStatistics(i int) *domain.GyStatistics {
	programs := []domain.ProgramMetric{
		{
			ProgramCode:                   "NA",
			RatioOfStudentsEligibleForUni: series(80, i),
			AverageGradePoints:            series(13, i%6),
			RatioOfStudentsWithExam:       series(85, i),
			AdmissionPointsAverage:        series(250, i),
		},
		{
			ProgramCode:                   "SA",
			RatioOfStudentsEligibleForUni: series(70, i),
			AverageGradePoints:            series(12, i%6),
			RatioOfStudentsWithExam:       series(80, i),
		},
	}
	return &domain.GyStatistics{
		ProgramMetrics:          programs,
		StudentsPerTeacherQuota: series(13, i%9),
		CertifiedTeachersQuota:  series(70, i),
		TotalNumberOfPupils:     series(500, i*2),
	}
}

// maybeRateLimit answers 429 for every 10th request in flaky mode.
func (a *mockAPI) maybeRateLimit(w http.ResponseWriter) bool {
	if !a.flaky {
		return false
	}
	if a.requests.Add(1)%10 == 0 {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return true
	}
	return false
}

func (a *mockAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if a.maybeRateLimit(w) {
		return
	}

	page := 0
	fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)

	totalPages := (len(a.units) + pageSize - 1) / pageSize
	start := page * pageSize
	if start > len(a.units) {
		start = len(a.units)
	}
	end := min(start+pageSize, len(a.units))

	writeJSON(w, map[string]any{
		"_embedded": map[string]any{"listedSchoolUnits": a.units[start:end]},
		"page":      map[string]any{"totalPages": totalPages},
	})
}

func (a *mockAPI) handleDetails(w http.ResponseWriter, r *http.Request) {
	if a.maybeRateLimit(w) {
		return
	}
	details, ok := a.details[r.PathValue("code")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{"schoolUnit": details})
}

func (a *mockAPI) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if a.maybeRateLimit(w) {
		return
	}
	code := r.PathValue("code")
	switch r.PathValue("stage") {
	case "gr":
		if stats, ok := a.gr[code]; ok {
			writeJSON(w, stats)
			return
		}
	case "gy":
		if stats, ok := a.gy[code]; ok {
			writeJSON(w, stats)
			return
		}
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
