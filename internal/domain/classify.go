package domain

import "strings"

// Name keywords used as low-confidence classification fallbacks. The en-dash
// variants appear in names entered by hand in the source register.
var (
	keywordsF9 = []string{"f-9", "f–9"}
	keywordsF6 = []string{"f-6", "f–6", "f-3"}
	keywords79 = []string{"7-9", "högstadium"}
)

// Classify assigns a school unit to exactly one category.
//
// The rule order is load-bearing and mirrors decreasing signal reliability:
// published statistics are trusted over the declared schooling-type
// metadata, which is trusted over free-text name matching.
//
//  1. upper-secondary code, "gymnasium" in the name, or any named program
//     metric in the gy statistics -> gymnasium
//  2. adapted-school code or "anpassad" in the name -> anpassad
//  3. existing grade-9 and grade-6 statistics -> F-9; grade-9 only -> 7-9;
//     grade-6 only -> F-6
//  4. declared school years of the compulsory schooling type: 9 plus any of
//     1-3 -> F-9; 9 -> 7-9; 6 or any of 1-3 -> F-6
//  5. name keywords: "f-9" -> F-9; "f-6"/"f-3" -> F-6; "7-9"/"högstadium" -> 7-9
//  6. any gr statistics block at all -> F-6
//  7. other
//
// Mixed-stage campuses (grundskola plus gymnasium under one unit code) can
// land in gymnasium through rule 1 even when most pupils are in the lower
// grades; that ambiguity comes from the source register itself and the rule
// order is kept as-is rather than second-guessed per unit.
func Classify(raw RawSchool) Category {
	name := strings.ToLower(raw.SchoolUnit.Name)
	if raw.Details != nil && raw.Details.Name != "" {
		name = strings.ToLower(raw.Details.Name)
	}

	if raw.Details.HasSchoolingType(SchoolingUpperSecondary) ||
		strings.Contains(name, "gymnasium") ||
		raw.StatisticsGy.HasPrograms() {
		return CategoryGymnasium
	}

	if raw.Details.HasSchoolingType(SchoolingAdapted) || strings.Contains(name, "anpassad") {
		return CategoryAnpassad
	}

	if c, ok := classifyByStatistics(raw.StatisticsGr); ok {
		return c
	}
	if c, ok := classifyBySchoolYears(raw.Details); ok {
		return c
	}
	if c, ok := classifyByName(name); ok {
		return c
	}

	if raw.StatisticsGr.HasAnyMetric() {
		// A gr statistics block with no grade-level signal still marks a
		// grundskola; F-6 is the default assumption for those.
		return CategoryF6
	}
	return CategoryOther
}

// classifyByStatistics derives the category from which grade levels have at
// least one existing observation.
func classifyByStatistics(gr *GrStatistics) (Category, bool) {
	if gr == nil {
		return "", false
	}

	grade9 := HasExistingValue(gr.AverageGradesMeritRating9thGrade) ||
		HasExistingValue(gr.RatioOfPupils9thGradeEligible)
	grade6 := HasExistingValue(gr.RatioOfPupils6thGradePassed) ||
		HasExistingValue(gr.TestResultSwedish6thGrade) ||
		HasExistingValue(gr.TestResultEnglish6thGrade) ||
		HasExistingValue(gr.TestResultMath6thGrade)

	switch {
	case grade9 && grade6:
		return CategoryF9, true
	case grade9:
		return Category79, true
	case grade6:
		return CategoryF6, true
	}
	return "", false
}

// classifyBySchoolYears uses the declared grade-year span of the compulsory
// schooling type. Only consulted when no statistics signal exists.
func classifyBySchoolYears(details *SchoolUnitDetails) (Category, bool) {
	years := compulsorySchoolYears(details)
	if len(years) == 0 {
		return "", false
	}

	has := func(labels ...string) bool {
		for _, label := range labels {
			for _, y := range years {
				if y == label {
					return true
				}
			}
		}
		return false
	}

	grade9 := has("9")
	early := has("1", "2", "3")
	switch {
	case grade9 && early:
		return CategoryF9, true
	case grade9:
		return Category79, true
	case has("6") || early:
		return CategoryF6, true
	}
	return "", false
}

// compulsorySchoolYears returns the school years of the "gr" schooling-type
// entry, falling back to the first declared entry.
func compulsorySchoolYears(details *SchoolUnitDetails) []string {
	if details == nil || len(details.TypeOfSchooling) == 0 {
		return nil
	}
	for _, ts := range details.TypeOfSchooling {
		if ts.Code == SchoolingCompulsory {
			return ts.SchoolYears
		}
	}
	return details.TypeOfSchooling[0].SchoolYears
}

func classifyByName(name string) (Category, bool) {
	if containsAny(name, keywordsF9) {
		return CategoryF9, true
	}
	if containsAny(name, keywordsF6) {
		return CategoryF6, true
	}
	if containsAny(name, keywords79) {
		return Category79, true
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
