package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/signintech/gopdf"
)

// The eleven MRS question stems, in questionnaire order, for the printed
// report.
var mrsQuestionStems = [questionCount]string{
	"Hot flushes, sweating",
	"Heart discomfort",
	"Sleep problems",
	"Depressive mood",
	"Irritability",
	"Anxiety",
	"Physical and mental exhaustion",
	"Sexual problems",
	"Bladder problems",
	"Dryness of vagina",
	"Joint and muscular discomfort",
}

var ratingLabels = [5]string{"None", "Mild", "Moderate", "Severe", "Very severe"}

// ReportService renders the baseline assessment as a PDF the user can hand
// to a healthcare provider.
type ReportService struct {
	fontPaths []string
}

func NewReportService() *ReportService {
	return &ReportService{
		fontPaths: []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		},
	}
}

// BuildBaselineReport renders the answers and their score. The score is
// recomputed here so the document always matches the answers it prints.
func (s *ReportService) BuildBaselineReport(name string, answers RawAnswers, generatedAt time.Time) ([]byte, error) {
	score := ScoreAnswers(answers)

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	fontLoaded := false
	var fontErr error
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("Body", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("load report font: %w", fontErr)
	}

	if err := pdf.SetFont("Body", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Thalia Baseline Assessment")
	pdf.Br(30)

	if err := pdf.SetFont("Body", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Name: %s", name))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Date: %s", generatedAt.Format("2006-01-02")))
	pdf.Br(25)

	if err := pdf.SetFont("Body", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Overall score: %d/44 (%s)", score.TotalScore, score.Severity))
	pdf.Br(18)

	if err := pdf.SetFont("Body", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Psychological: %d/16", score.PsychologicalScore))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Somatic: %d/16", score.SomaticScore))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Urogenital: %d/12", score.UrogenitalScore))
	pdf.Br(24)

	if err := pdf.SetFont("Body", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Reported symptoms:")
	pdf.Br(16)

	if err := pdf.SetFont("Body", "", 11); err != nil {
		return nil, err
	}
	for i := 1; i <= questionCount; i++ {
		rating := answers[questionKey(i)]
		line := fmt.Sprintf("%d. %s: %s (%d)", i, mrsQuestionStems[i-1], ratingLabel(rating), rating)
		lines, _ := pdf.SplitText(line, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(13)
		}
	}

	pdf.SetY(790)
	if err := pdf.SetFont("Body", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Educational information only; not a substitute for professional medical consultation.")

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

func ratingLabel(rating int) string {
	if rating < 0 || rating >= len(ratingLabels) {
		return ratingLabels[0]
	}
	return ratingLabels[rating]
}
