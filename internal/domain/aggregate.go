package domain

// BuildProgramResults resolves every program metric of an upper-secondary
// unit to its latest values. Programs whose three headline figures
// (university eligibility, grade points, exam ratio) are all absent are
// dropped; admission points alone do not keep a program.
func BuildProgramResults(gy *GyStatistics) []ProgramResult {
	if gy == nil {
		return nil
	}

	var out []ProgramResult
	for _, pm := range gy.ProgramMetrics {
		r := ProgramResult{
			ProgramCode:           pm.ProgramCode,
			EligibleForUniversity: LatestValue(pm.RatioOfStudentsEligibleForUni),
			GradePoints:           LatestValue(pm.AverageGradePoints),
			ExamRatio:             LatestValue(pm.RatioOfStudentsWithExam),
			AdmissionPointsAvg:    LatestValue(pm.AdmissionPointsAverage),
			AdmissionPointsMin:    LatestValue(pm.AdmissionPointsMin),
		}
		if r.EligibleForUniversity == nil && r.GradePoints == nil && r.ExamRatio == nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// AggregatePrograms computes the unit-level upper-secondary figures as
// unweighted means across programs. A program lacking a field is excluded
// from that field's average rather than counted as zero.
func AggregatePrograms(programs []ProgramResult) (eligibility, gradePoints, examRatio *float64) {
	eligibility = meanOf(programs, func(p ProgramResult) *float64 { return p.EligibleForUniversity })
	gradePoints = meanOf(programs, func(p ProgramResult) *float64 { return p.GradePoints })
	examRatio = meanOf(programs, func(p ProgramResult) *float64 { return p.ExamRatio })
	return eligibility, gradePoints, examRatio
}

func meanOf(programs []ProgramResult, field func(ProgramResult) *float64) *float64 {
	var sum float64
	var n int
	for _, p := range programs {
		if v := field(p); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// commonFigures resolves the figures published for both stages, preferring
// the gr block and falling back to gy when the gr value is absent.
func commonFigures(gr *GrStatistics, gy *GyStatistics) (perTeacher, certified, pupils *float64) {
	var grTeacher, grCertified, grPupils []Observation
	if gr != nil {
		grTeacher, grCertified, grPupils = gr.StudentsPerTeacherQuota, gr.CertifiedTeachersQuota, gr.TotalNumberOfPupils
	}
	var gyTeacher, gyCertified, gyPupils []Observation
	if gy != nil {
		gyTeacher, gyCertified, gyPupils = gy.StudentsPerTeacherQuota, gy.CertifiedTeachersQuota, gy.TotalNumberOfPupils
	}

	perTeacher = firstNonNil(LatestValue(grTeacher), LatestValue(gyTeacher))
	certified = firstNonNil(LatestValue(grCertified), LatestValue(gyCertified))
	pupils = firstNonNil(LatestValue(grPupils), LatestValue(gyPupils))
	return perTeacher, certified, pupils
}
