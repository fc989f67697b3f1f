package domain

import (
	"sort"
	"strconv"
	"time"
)

// categoryPriority orders categories in the published snapshot. Lower sorts
// first.
var categoryPriority = map[Category]int{
	CategoryF9:        0,
	Category79:        1,
	CategoryF6:        2,
	CategoryGymnasium: 3,
	CategoryAnpassad:  4,
	CategoryOther:     5,
}

// NormalizeSchool builds the output record for one raw merge. A unit whose
// detail record was absent still normalizes cleanly: municipality becomes
// the Unknown sentinel, ownership defaults to independent, and address
// fields stay empty.
func NormalizeSchool(raw RawSchool) NormalizedSchool {
	lat, lon := raw.SchoolUnit.Coordinates()

	s := NormalizedSchool{
		ID:           raw.SchoolUnit.Code,
		Name:         raw.SchoolUnit.Name,
		Latitude:     lat,
		Longitude:    lon,
		Municipality: MunicipalityUnknown,
		Ownership:    OwnershipIndependent,
		Category:     Classify(raw),
		Statistics:   normalizeStatistics(raw),
	}

	if raw.Details != nil {
		if raw.Details.Name != "" {
			s.Name = raw.Details.Name
		}
		if raw.Details.PrincipalOrganizerType == "Kommun" {
			s.Ownership = OwnershipMunicipal
		}
		s.SchoolingTypes = schoolingTypeNames(raw.Details)
		s.GradeYears = gradeYears(raw.Details)
	}

	if addr := raw.Details.VisitingAddress(); addr != nil {
		s.Street = addr.StreetAddress
		s.PostalCode = addr.PostalCode
		s.City = addr.City
		if addr.City != "" {
			s.Municipality = addr.City
		}
	}

	return s
}

func normalizeStatistics(raw RawSchool) SchoolStatistics {
	stats := SchoolStatistics{}

	if gr := raw.StatisticsGr; gr != nil {
		stats.MeritRating = LatestValue(gr.AverageGradesMeritRating9thGrade)
		stats.MeritHistory = History(gr.AverageGradesMeritRating9thGrade)
		stats.Grade9PassRate = LatestValue(gr.RatioOfPupils9thGradeEligible)
		stats.Grade6PassRate = LatestValue(gr.RatioOfPupils6thGradePassed)
		stats.Grade6TestSwedish = LatestValue(gr.TestResultSwedish6thGrade)
		stats.Grade6TestEnglish = LatestValue(gr.TestResultEnglish6thGrade)
		stats.Grade6TestMath = LatestValue(gr.TestResultMath6thGrade)
	}

	stats.Programs = BuildProgramResults(raw.StatisticsGy)
	stats.GyEligibility, stats.GyGradePoints, stats.GyExamRatio = AggregatePrograms(stats.Programs)
	stats.StudentsPerTeacher, stats.CertifiedTeachers, stats.TotalPupils = commonFigures(raw.StatisticsGr, raw.StatisticsGy)

	return stats
}

// schoolingTypeNames collects the distinct display names in declaration order.
func schoolingTypeNames(details *SchoolUnitDetails) []string {
	var names []string
	seen := map[string]bool{}
	for _, ts := range details.TypeOfSchooling {
		if ts.DisplayName == "" || seen[ts.DisplayName] {
			continue
		}
		seen[ts.DisplayName] = true
		names = append(names, ts.DisplayName)
	}
	return names
}

// gradeYears returns the sorted union of grade labels across all schooling
// types. Non-numeric labels ("F" for förskoleklass) sort before numeric
// grades; numeric grades sort by value.
func gradeYears(details *SchoolUnitDetails) []string {
	seen := map[string]bool{}
	var years []string
	for _, ts := range details.TypeOfSchooling {
		for _, y := range ts.SchoolYears {
			if y == "" || seen[y] {
				continue
			}
			seen[y] = true
			years = append(years, y)
		}
	}

	sort.Slice(years, func(i, j int) bool {
		ni, errI := strconv.Atoi(years[i])
		nj, errJ := strconv.Atoi(years[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return false
		case errJ == nil:
			return true
		default:
			return years[i] < years[j]
		}
	})
	return years
}

// performanceProxy is the within-category tiebreaker: merit score when
// present, else the grade-6 pass rate, else zero.
func performanceProxy(s NormalizedSchool) float64 {
	if s.Statistics.MeritRating != nil {
		return *s.Statistics.MeritRating
	}
	if s.Statistics.Grade6PassRate != nil {
		return *s.Statistics.Grade6PassRate
	}
	return 0
}

// SortSchools orders the snapshot deterministically: category priority
// ascending, then performance proxy descending, then ID for full stability.
func SortSchools(schools []NormalizedSchool) {
	sort.SliceStable(schools, func(i, j int) bool {
		pi, pj := categoryPriority[schools[i].Category], categoryPriority[schools[j].Category]
		if pi != pj {
			return pi < pj
		}
		si, sj := performanceProxy(schools[i]), performanceProxy(schools[j])
		if si != sj {
			return si > sj
		}
		return schools[i].ID < schools[j].ID
	})
}

// BuildSnapshot assembles the published document from normalized records.
// The fetch timestamp comes from the raw snapshot metadata when available;
// processedAt is the only field that varies across reruns on identical input.
func BuildSnapshot(schools []NormalizedSchool, fetchedAt time.Time) ProcessedSnapshot {
	SortSchools(schools)

	md := SnapshotMetadata{
		FetchedAt:    fetchedAt,
		ProcessedAt:  clock.Now().UTC(),
		TotalSchools: len(schools),
		Categories:   make(map[Category]int, len(Categories)),
	}
	if md.FetchedAt.IsZero() {
		md.FetchedAt = md.ProcessedAt
	}
	for _, c := range Categories {
		md.Categories[c] = 0
	}
	for _, s := range schools {
		md.Categories[s.Category]++
		if s.Statistics.MeritRating != nil {
			md.WithMeritData++
		}
		if s.Statistics.Grade6PassRate != nil {
			md.WithGrade6Data++
		}
		if len(s.Statistics.Programs) > 0 || s.Statistics.GyEligibility != nil {
			md.WithGyData++
		}
	}

	return ProcessedSnapshot{Metadata: md, Schools: schools}
}
