package domain

// Grade is the discrete value-for-price verdict, distinct from the
// 0-100 quality rating.
type Grade string

const (
	GradePoor  Grade = "poor"
	GradeFair  Grade = "fair"
	GradeGood  Grade = "good"
	GradeGreat Grade = "great"
	GradeSteal Grade = "steal"
)

var Grades = []Grade{GradePoor, GradeFair, GradeGood, GradeGreat, GradeSteal}

func ParseGrade(s string) (Grade, error) {
	for _, g := range Grades {
		if string(g) == s {
			return g, nil
		}
	}
	return "", Rejectf(ErrValidation, "unknown value grade %q", s)
}

// Numeric rating bounds.
const (
	RatingMin = 0
	RatingMax = 100
)

func ValidRating(v float64) bool { return v >= RatingMin && v <= RatingMax }
