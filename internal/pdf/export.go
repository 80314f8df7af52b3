package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/iliyamo/quizgen/internal/model"
)

const fontFamily = "Helvetica"

var optionLabels = [model.OptionCount]string{"A", "B", "C", "D"}

// RenderQuiz renders quiz as an A4 document: questions with lettered
// options, followed by an answer key with explanations.
func RenderQuiz(quiz model.Quiz) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(quiz.Title, true)
	doc.SetAuthor("quizgen", false)
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(fontFamily, "", 9)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	doc.SetFont(fontFamily, "B", 18)
	doc.MultiCell(0, 9, tr(quiz.Title), "", "C", false)
	doc.SetFont(fontFamily, "", 10)
	doc.CellFormat(0, 6, fmt.Sprintf("%d questions, %d points, created %s",
		len(quiz.Elements), totalPoints(quiz.Elements), quiz.CreatedAt.Format("2006-01-02")), "", 1, "C", false, 0, "")
	hr(doc)

	for i, e := range quiz.Elements {
		doc.SetFont(fontFamily, "B", 12)
		doc.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s (%d pt)", i+1, e.Question, e.Point)), "", "L", false)
		doc.SetFont(fontFamily, "", 11)
		for j, opt := range e.Options {
			label := "?"
			if j < len(optionLabels) {
				label = optionLabels[j]
			}
			doc.SetX(26)
			doc.MultiCell(0, 6, tr(fmt.Sprintf("%s) %s", label, opt)), "", "L", false)
		}
		doc.Ln(3)
	}

	doc.AddPage()
	doc.SetFont(fontFamily, "B", 14)
	doc.CellFormat(0, 8, "Answer key", "", 1, "L", false, 0, "")
	hr(doc)
	for i, e := range quiz.Elements {
		label := "?"
		if e.CorrectOption >= 0 && e.CorrectOption < len(optionLabels) {
			label = optionLabels[e.CorrectOption]
		}
		doc.SetFont(fontFamily, "B", 11)
		doc.CellFormat(0, 6, fmt.Sprintf("%d. %s", i+1, label), "", 1, "L", false, 0, "")
		doc.SetFont(fontFamily, "", 10)
		doc.MultiCell(0, 5, tr(e.Explanation), "", "L", false)
		doc.Ln(2)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render quiz pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func totalPoints(elems []model.QuizElement) int {
	sum := 0
	for _, e := range elems {
		sum += e.Point
	}
	return sum
}

func hr(doc *gofpdf.Fpdf) {
	y := doc.GetY() + 1.5
	doc.SetLineWidth(0.2)
	doc.Line(20, y, 190, y)
	doc.SetY(y + 3)
}
