package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	config "github.com/marketformation/mf-backend/configs"
	"github.com/marketformation/mf-backend/models"
)

// GenerateSettlementStatement renders a PDF statement for a settled
// withdrawal and uploads it to blob storage. Returns the statement URL.
func GenerateSettlementStatement(entry *models.PayoutsHistory, banking *models.TrainerBanking, amountLabel string) (string, error) {
	htmlData, err := generateStatementHTML(entry, banking, amountLabel)
	if err != nil {
		return "", fmt.Errorf("failed to render statement HTML: %w", err)
	}

	pdfBytes, err := generatePDFFromHTML(htmlData)
	if err != nil {
		return "", fmt.Errorf("failed to render statement PDF: %w", err)
	}

	url, err := uploadToCloudinary(pdfBytes, entry.TrainerID)
	if err != nil {
		return "", fmt.Errorf("failed to upload statement: %w", err)
	}
	return url, nil
}

func generateStatementHTML(entry *models.PayoutsHistory, banking *models.TrainerBanking, amountLabel string) (string, error) {
	tmpl, err := template.ParseFiles("templates/statement.html")
	if err != nil {
		return "", err
	}

	payoutName := banking.Email
	if banking.PayoutName != nil && *banking.PayoutName != "" {
		payoutName = *banking.PayoutName
	}

	data := struct {
		PayoutName     string
		EntryID        string
		AmountLabel    string
		Currency       string
		SettlementDate string
	}{
		PayoutName:     payoutName,
		EntryID:        entry.ID.String(),
		AmountLabel:    amountLabel,
		Currency:       entry.Currency,
		SettlementDate: entry.Date.Format("January 2, 2006"),
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
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

func uploadToCloudinary(fileBytes []byte, trainerID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("statements/%s_%s", trainerID, uuid.New().String()),
		Folder:       "marketformation_statements",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
