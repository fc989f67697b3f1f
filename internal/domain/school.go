package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound marks a source resource that legitimately does not exist
// (HTTP 404 on a per-unit sub-resource). Callers treat it as "this school
// unit lacks this sub-resource", never as a transient failure.
var ErrNotFound = errors.New("resource not found")

// SchoolUnitRef is the compact school-unit record from the paginated
// listing endpoint. Coordinates arrive as source-formatted strings.
type SchoolUnitRef struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	UnitAbroad bool   `json:"unitAbroad"`
}

// Validate reports whether a listed unit should enter the pipeline:
// parseable non-zero coordinates and not located abroad.
func (u SchoolUnitRef) Validate() bool {
	if u.UnitAbroad {
		return false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(u.Latitude), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(u.Longitude), 64)
	if errLat != nil || errLon != nil {
		return false
	}
	return lat != 0 && lon != 0
}

// Coordinates returns the parsed latitude and longitude. Zero values are
// only possible for units that failed Validate.
func (u SchoolUnitRef) Coordinates() (float64, float64) {
	lat, _ := strconv.ParseFloat(strings.TrimSpace(u.Latitude), 64)
	lon, _ := strconv.ParseFloat(strings.TrimSpace(u.Longitude), 64)
	return lat, lon
}

// Address is one typed address entry on a school unit. Only the visiting
// address ("BESOKSADRESS") is consumed by the pipeline.
type Address struct {
	Type          string `json:"type"`
	StreetAddress string `json:"streetAddress"`
	PostalCode    string `json:"postalCode"`
	City          string `json:"city"`
}

// AddressTypeVisiting is the address type carrying the physical location.
const AddressTypeVisiting = "BESOKSADRESS"

// TypeOfSchooling describes one schooling form offered by a unit.
type TypeOfSchooling struct {
	Code        string   `json:"code"`
	DisplayName string   `json:"displayName"`
	SchoolYears []string `json:"schoolYears"`
}

// Schooling-type codes used by the classifier.
const (
	SchoolingCompulsory     = "gr"   // grundskola, grades 1-9
	SchoolingUpperSecondary = "gy"   // gymnasieskola
	SchoolingAdapted        = "gran" // anpassad grundskola
)

// SchoolUnitDetails is the per-unit detail record. Any field may be absent
// in the source; absence degrades to defaults during normalization.
type SchoolUnitDetails struct {
	Code                   string            `json:"code"`
	Name                   string            `json:"name"`
	PrincipalOrganizerType string            `json:"principalOrganizerType"`
	Addresses              []Address         `json:"addresses"`
	TypeOfSchooling        []TypeOfSchooling `json:"typeOfSchooling"`
}

// VisitingAddress returns the first visiting address, or nil.
func (d *SchoolUnitDetails) VisitingAddress() *Address {
	if d == nil {
		return nil
	}
	for i := range d.Addresses {
		if d.Addresses[i].Type == AddressTypeVisiting {
			return &d.Addresses[i]
		}
	}
	return nil
}

// HasSchoolingType reports whether the unit declares the given schooling code.
func (d *SchoolUnitDetails) HasSchoolingType(code string) bool {
	if d == nil {
		return false
	}
	for _, ts := range d.TypeOfSchooling {
		if ts.Code == code {
			return true
		}
	}
	return false
}

// ValueTypeExists is the validity marker for a usable observation. Other
// markers ("MISSING", privacy-suppressed variants) mean the value must be
// skipped, not read as zero.
const ValueTypeExists = "EXISTS"

// Observation is one time-stamped, validity-flagged data point for a metric.
// Values are locale-formatted strings with comma as decimal separator.
type Observation struct {
	Value      string `json:"value"`
	ValueType  string `json:"valueType"`
	TimePeriod string `json:"timePeriod"`
}

// Exists reports whether the observation carries a real value.
func (o Observation) Exists() bool { return o.ValueType == ValueTypeExists }

// GrStatistics is the grades 1-9 statistics block for one school unit.
type GrStatistics struct {
	AverageGradesMeritRating9thGrade []Observation `json:"averageGradesMeritRating9thGrade"`
	RatioOfPupils9thGradeEligible    []Observation `json:"ratioOfPupils9thGradeEligibleForNationalProgramGY"`
	RatioOfPupils6thGradePassed      []Observation `json:"ratioOfPupils6thGradeAllSubjectsPassed"`
	TestResultSwedish6thGrade        []Observation `json:"averageResultNationalTestsSubjectSWE6thGrade"`
	TestResultEnglish6thGrade        []Observation `json:"averageResultNationalTestsSubjectENG6thGrade"`
	TestResultMath6thGrade           []Observation `json:"averageResultNationalTestsSubjectMA6thGrade"`
	StudentsPerTeacherQuota          []Observation `json:"studentsPerTeacherQuota"`
	CertifiedTeachersQuota           []Observation `json:"certifiedTeachersQuota"`
	TotalNumberOfPupils              []Observation `json:"totalNumberOfPupils"`
}

// HasAnyMetric reports whether any metric carries at least one entry,
// regardless of validity. Used as the weakest classification signal.
func (s *GrStatistics) HasAnyMetric() bool {
	if s == nil {
		return false
	}
	for _, series := range [][]Observation{
		s.AverageGradesMeritRating9thGrade,
		s.RatioOfPupils9thGradeEligible,
		s.RatioOfPupils6thGradePassed,
		s.TestResultSwedish6thGrade,
		s.TestResultEnglish6thGrade,
		s.TestResultMath6thGrade,
		s.StudentsPerTeacherQuota,
		s.CertifiedTeachersQuota,
		s.TotalNumberOfPupils,
	} {
		if len(series) > 0 {
			return true
		}
	}
	return false
}

// ProgramMetric carries per-program observation series for one national
// program at an upper-secondary unit.
type ProgramMetric struct {
	ProgramCode                   string        `json:"programCode"`
	AdmissionPointsAverage        []Observation `json:"admissionPointsAverage"`
	AdmissionPointsMin            []Observation `json:"admissionPointsMin"`
	RatioOfStudentsEligibleForUni []Observation `json:"ratioOfStudentsEligibleForUniversity"`
	AverageGradePoints            []Observation `json:"averageGradePoints"`
	RatioOfStudentsWithExam       []Observation `json:"ratioOfStudentsWithExam"`
}

// GyStatistics is the upper-secondary statistics block for one school unit.
type GyStatistics struct {
	ProgramMetrics          []ProgramMetric `json:"programMetrics"`
	StudentsPerTeacherQuota []Observation   `json:"studentsPerTeacherQuota"`
	CertifiedTeachersQuota  []Observation   `json:"certifiedTeachersQuota"`
	TotalNumberOfPupils     []Observation   `json:"totalNumberOfPupils"`
}

// HasPrograms reports whether at least one named program metric is present.
func (s *GyStatistics) HasPrograms() bool {
	if s == nil {
		return false
	}
	for _, pm := range s.ProgramMetrics {
		if pm.ProgramCode != "" {
			return true
		}
	}
	return false
}

// RawSchool is the verbatim merge of everything fetched for one unit.
// Details and statistics are nil when the sub-resource was absent or its
// fetch failed; the unit still flows through the pipeline.
type RawSchool struct {
	SchoolUnit   SchoolUnitRef      `json:"schoolUnit"`
	Details      *SchoolUnitDetails `json:"details"`
	StatisticsGr *GrStatistics      `json:"statisticsGr"`
	StatisticsGy *GyStatistics      `json:"statisticsGy"`
}

// FetchMetadata records the outcome of a fetch phase run.
type FetchMetadata struct {
	FetchedAt        time.Time `json:"fetchedAt"`
	TotalUnits       int       `json:"totalUnits"`
	WithDetails      int       `json:"withDetails"`
	WithGrStatistics int       `json:"withGrStatistics"`
	WithGyStatistics int       `json:"withGyStatistics"`
}

// Category is the closed classification set. The wire values are part of
// the snapshot contract with the presentation layer.
type Category string

const (
	CategoryF9        Category = "F-9"
	Category79        Category = "7-9"
	CategoryF6        Category = "F-6"
	CategoryGymnasium Category = "gymnasium"
	CategoryAnpassad  Category = "anpassad"
	CategoryOther     Category = "other"
)

// Categories lists all values in snapshot sort-priority order.
var Categories = []Category{CategoryF9, Category79, CategoryF6, CategoryGymnasium, CategoryAnpassad, CategoryOther}

// Ownership distinguishes municipally and independently run units.
type Ownership string

const (
	OwnershipMunicipal   Ownership = "municipal"
	OwnershipIndependent Ownership = "independent"
)

// MunicipalityUnknown is the sentinel for units without a usable visiting
// address.
const MunicipalityUnknown = "Unknown"

// HistoryEntry is one {period, value} pair in a metric history.
type HistoryEntry struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// ProgramResult holds the latest value of each metric for one program.
// Nil means the source never reported a usable observation.
type ProgramResult struct {
	ProgramCode           string   `json:"programCode"`
	EligibleForUniversity *float64 `json:"eligibleForUniversity"`
	GradePoints           *float64 `json:"gradePoints"`
	ExamRatio             *float64 `json:"examRatio"`
	AdmissionPointsAvg    *float64 `json:"admissionPointsAvg"`
	AdmissionPointsMin    *float64 `json:"admissionPointsMin"`
}

// SchoolStatistics is the normalized statistics sub-record. Every numeric
// field is either a finite value or nil, never NaN and never a silent zero.
type SchoolStatistics struct {
	MeritRating  *float64       `json:"meritRating"`
	MeritHistory []HistoryEntry `json:"meritHistory,omitempty"`

	Grade9PassRate    *float64 `json:"grade9PassRate"`
	Grade6PassRate    *float64 `json:"grade6PassRate"`
	Grade6TestSwedish *float64 `json:"grade6TestSwedish"`
	Grade6TestEnglish *float64 `json:"grade6TestEnglish"`
	Grade6TestMath    *float64 `json:"grade6TestMath"`

	GyEligibility *float64        `json:"gyEligibility"`
	GyGradePoints *float64        `json:"gyGradePoints"`
	GyExamRatio   *float64        `json:"gyExamRatio"`
	Programs      []ProgramResult `json:"programs,omitempty"`

	StudentsPerTeacher *float64 `json:"studentsPerTeacher"`
	CertifiedTeachers  *float64 `json:"certifiedTeachersRatio"`
	TotalPupils        *float64 `json:"totalPupils"`
}

// NormalizedSchool is the output record, one per school unit per run.
type NormalizedSchool struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Latitude       float64          `json:"latitude"`
	Longitude      float64          `json:"longitude"`
	Municipality   string           `json:"municipality"`
	Ownership      Ownership        `json:"ownership"`
	Category       Category         `json:"category"`
	SchoolingTypes []string         `json:"schoolingTypes,omitempty"`
	GradeYears     []string         `json:"gradeYears,omitempty"`
	Street         string           `json:"street"`
	PostalCode     string           `json:"postalCode"`
	City           string           `json:"city"`
	Statistics     SchoolStatistics `json:"statistics"`
}

// SnapshotMetadata is the provenance block of the processed snapshot.
type SnapshotMetadata struct {
	FetchedAt      time.Time        `json:"fetchedAt"`
	ProcessedAt    time.Time        `json:"processedAt"`
	TotalSchools   int              `json:"totalSchools"`
	Categories     map[Category]int `json:"categories"`
	WithMeritData  int              `json:"withMeritData"`
	WithGrade6Data int              `json:"withGrade6Data"`
	WithGyData     int              `json:"withGyData"`
}

// ProcessedSnapshot is the published dataset read by the presentation layer.
type ProcessedSnapshot struct {
	Metadata SnapshotMetadata   `json:"metadata"`
	Schools  []NormalizedSchool `json:"schools"`
}
