package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func grWithGrade9And6() *GrStatistics {
	return &GrStatistics{
		AverageGradesMeritRating9thGrade: []Observation{existing("215,0", "2024")},
		RatioOfPupils6thGradePassed:      []Observation{existing("78,0", "2024")},
	}
}

func TestClassify_UpperSecondarySignals(t *testing.T) {
	t.Run("schooling-type code", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Vanlig skola"},
			Details: &SchoolUnitDetails{
				TypeOfSchooling: []TypeOfSchooling{{Code: SchoolingUpperSecondary}},
			},
		}
		assert.Equal(t, CategoryGymnasium, Classify(raw))
	})

	t.Run("name keyword", func(t *testing.T) {
		raw := RawSchool{SchoolUnit: SchoolUnitRef{Name: "Norra Gymnasium"}}
		assert.Equal(t, CategoryGymnasium, Classify(raw))
	})

	t.Run("program metrics present", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit:   SchoolUnitRef{Name: "Okänd enhet"},
			StatisticsGy: &GyStatistics{ProgramMetrics: []ProgramMetric{{ProgramCode: "NA"}}},
		}
		assert.Equal(t, CategoryGymnasium, Classify(raw))
	})

	t.Run("gy signal beats compulsory grade statistics", func(t *testing.T) {
		// A true gymnasium signal must win even when gr statistics exist.
		raw := RawSchool{
			SchoolUnit:   SchoolUnitRef{Name: "Campus"},
			Details:      &SchoolUnitDetails{TypeOfSchooling: []TypeOfSchooling{{Code: SchoolingUpperSecondary}}},
			StatisticsGr: grWithGrade9And6(),
		}
		assert.Equal(t, CategoryGymnasium, Classify(raw))
	})

	t.Run("empty program list is not a gy signal", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit:   SchoolUnitRef{Name: "Skola"},
			StatisticsGy: &GyStatistics{},
			StatisticsGr: grWithGrade9And6(),
		}
		assert.Equal(t, CategoryF9, Classify(raw))
	})
}

func TestClassify_AdaptedSignals(t *testing.T) {
	t.Run("schooling-type code", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Skolan"},
			Details:    &SchoolUnitDetails{TypeOfSchooling: []TypeOfSchooling{{Code: SchoolingAdapted}}},
		}
		assert.Equal(t, CategoryAnpassad, Classify(raw))
	})

	t.Run("name keyword", func(t *testing.T) {
		raw := RawSchool{SchoolUnit: SchoolUnitRef{Name: "Anpassad grundskola Söder"}}
		assert.Equal(t, CategoryAnpassad, Classify(raw))
	})
}

func TestClassify_StatisticsPresence(t *testing.T) {
	t.Run("grade 9 and grade 6 data means F-9", func(t *testing.T) {
		raw := RawSchool{SchoolUnit: SchoolUnitRef{Name: "Skolan"}, StatisticsGr: grWithGrade9And6()}
		assert.Equal(t, CategoryF9, Classify(raw))
	})

	t.Run("statistics outrank conflicting name text", func(t *testing.T) {
		// Name says högstadium (a 7-9 keyword) but grade-6 data exists too.
		raw := RawSchool{
			SchoolUnit:   SchoolUnitRef{Name: "Högstadium Öster 7-9"},
			StatisticsGr: grWithGrade9And6(),
		}
		assert.Equal(t, CategoryF9, Classify(raw))
	})

	t.Run("grade 9 only means 7-9", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Skolan"},
			StatisticsGr: &GrStatistics{
				RatioOfPupils9thGradeEligible: []Observation{existing("82,0", "2024")},
			},
		}
		assert.Equal(t, Category79, Classify(raw))
	})

	t.Run("grade 6 subject test only means F-6", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Skolan"},
			StatisticsGr: &GrStatistics{
				TestResultMath6thGrade: []Observation{existing("63,1", "2024")},
			},
		}
		assert.Equal(t, CategoryF6, Classify(raw))
	})

	t.Run("suppressed observations are not a signal", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Skolan"},
			StatisticsGr: &GrStatistics{
				AverageGradesMeritRating9thGrade: []Observation{missing("2024")},
				RatioOfPupils6thGradePassed:      []Observation{existing("71,0", "2024")},
			},
		}
		assert.Equal(t, CategoryF6, Classify(raw))
	})

	t.Run("grade data never lands in other", func(t *testing.T) {
		raw := RawSchool{SchoolUnit: SchoolUnitRef{}, StatisticsGr: grWithGrade9And6()}
		assert.NotEqual(t, CategoryOther, Classify(raw))
	})
}

func TestClassify_SchoolYears(t *testing.T) {
	build := func(years ...string) RawSchool {
		return RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Skolan"},
			Details: &SchoolUnitDetails{
				TypeOfSchooling: []TypeOfSchooling{{Code: SchoolingCompulsory, SchoolYears: years}},
			},
		}
	}

	assert.Equal(t, CategoryF9, Classify(build("1", "2", "3", "4", "5", "6", "7", "8", "9")))
	assert.Equal(t, Category79, Classify(build("7", "8", "9")))
	assert.Equal(t, CategoryF6, Classify(build("1", "2", "3")))
	assert.Equal(t, CategoryF6, Classify(build("4", "5", "6")))

	t.Run("statistics beat declared years", func(t *testing.T) {
		raw := build("7", "8", "9")
		raw.StatisticsGr = grWithGrade9And6()
		assert.Equal(t, CategoryF9, Classify(raw))
	})
}

func TestClassify_NameFallback(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"Solhöjdens skola F-9", CategoryF9},
		{"Solhöjdens skola F–9", CategoryF9},
		{"Ängens skola f-6", CategoryF6},
		{"Lilla skolan F-3", CategoryF6},
		{"Östra skolan 7-9", Category79},
		{"Högstadium Väster", Category79},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := RawSchool{SchoolUnit: SchoolUnitRef{Name: tt.name}}
			assert.Equal(t, tt.want, Classify(raw))
		})
	}

	t.Run("detail name preferred over listing name", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Enhet 4711"},
			Details:    &SchoolUnitDetails{Name: "Björkens skola F-6"},
		}
		assert.Equal(t, CategoryF6, Classify(raw))
	})
}

func TestClassify_Defaults(t *testing.T) {
	t.Run("bare gr statistics default to F-6", func(t *testing.T) {
		raw := RawSchool{
			SchoolUnit: SchoolUnitRef{Name: "Skolan"},
			StatisticsGr: &GrStatistics{
				TotalNumberOfPupils: []Observation{existing("230", "2024")},
			},
		}
		assert.Equal(t, CategoryF6, Classify(raw))
	})

	t.Run("nothing at all means other", func(t *testing.T) {
		raw := RawSchool{SchoolUnit: SchoolUnitRef{Name: "Komvux Centrum"}}
		assert.Equal(t, CategoryOther, Classify(raw))
	})

	t.Run("empty gr block means other", func(t *testing.T) {
		raw := RawSchool{SchoolUnit: SchoolUnitRef{Name: "Enheten"}, StatisticsGr: &GrStatistics{}}
		assert.Equal(t, CategoryOther, Classify(raw))
	})
}
