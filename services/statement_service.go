package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	config "github.com/nqhuy1905/course_market/configs"
	"github.com/nqhuy1905/course_market/models"
	"github.com/nqhuy1905/course_market/notifications"
)

// GeneratePayoutStatement renders a settled period into a PDF statement,
// uploads it and emails the teacher the link. Best effort: the payout batch
// has already committed, so failures here are logged, not propagated.
func GeneratePayoutStatement(teacher models.User, summary TeacherPeriodSummary) {
	htmlData, err := renderStatementHTML(teacher, summary)
	if err != nil {
		log.Printf("🔥 Failed to render payout statement HTML: %v", err)
		return
	}

	pdfBytes, err := renderPDFFromHTML(htmlData)
	if err != nil {
		log.Printf("🔥 Failed to render payout statement PDF: %v", err)
		return
	}

	statementURL, err := uploadStatement(pdfBytes, teacher.ID, summary.YearMonth)
	if err != nil {
		log.Printf("🔥 Failed to upload payout statement: %v", err)
		return
	}

	notifications.SendEmail(
		teacher.FullName,
		teacher.Email,
		fmt.Sprintf("Your payout statement for %s", summary.YearMonth),
		fmt.Sprintf("<h1>Payout Processed</h1><p>Hello %s,</p><p>Your earnings for %s have been paid out. You can download your statement here: <a href='%s'>Payout Statement</a>.</p>", teacher.FullName, summary.YearMonth, statementURL),
	)
	log.Printf("✅ Generated payout statement for teacher %s, period %s", teacher.ID, summary.YearMonth)
}

func renderStatementHTML(teacher models.User, summary TeacherPeriodSummary) (string, error) {
	tmpl, err := template.ParseFiles("templates/payout_statement.html")
	if err != nil {
		return "", err
	}

	data := struct {
		TeacherName string
		YearMonth   string
		Summary     TeacherPeriodSummary
		IssuedAt    string
	}{
		TeacherName: teacher.FullName,
		YearMonth:   summary.YearMonth,
		Summary:     summary,
		IssuedAt:    time.Now().Format("January 2, 2006"),
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

func renderPDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadStatement(fileBytes []byte, teacherID uuid.UUID, yearMonth string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("statements/%s_%s", teacherID, yearMonth),
		Folder:       "course_market_statements",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
