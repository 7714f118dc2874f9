package services

import "strconv"

// Subscale membership follows the published Menopause Rating Scale. The
// three domains cover eleven question slots and are accumulated
// independently of the total, so they are not required to sum to it.
var (
	psychologicalQuestions = []int{4, 5, 6, 7}
	somaticQuestions       = []int{1, 2, 3, 11}
	urogenitalQuestions    = []int{8, 9, 10}
)

const questionCount = 11

// ScoreAnswers computes the MRS baseline score from raw questionnaire
// answers. It is a total function: missing questions count as zero, there
// are no failure cases and no side effects.
func ScoreAnswers(answers RawAnswers) Score {
	total := 0
	for i := 1; i <= questionCount; i++ {
		total += answers[questionKey(i)]
	}
	return Score{
		TotalScore:         total,
		Severity:           severityFor(total),
		PsychologicalScore: sumQuestions(answers, psychologicalQuestions),
		SomaticScore:       sumQuestions(answers, somaticQuestions),
		UrogenitalScore:    sumQuestions(answers, urogenitalQuestions),
	}
}

func sumQuestions(answers RawAnswers, qs []int) int {
	sum := 0
	for _, i := range qs {
		sum += answers[questionKey(i)]
	}
	return sum
}

func questionKey(i int) string { return "q" + strconv.Itoa(i) }

func severityFor(total int) Severity {
	switch {
	case total <= 4:
		return SeverityNone
	case total <= 8:
		return SeverityMild
	case total <= 15:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}
