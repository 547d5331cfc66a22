package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"porttariff/internal/domain"
	"porttariff/internal/port"
)

// EmailSender is the subset of the SES client the notifier uses.
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client      EmailSender
	fromAddress string
	fromName    string
	reviewers   []string
	frontendURL string
}

// NewSESNotifier creates a new SES-backed ReviewNotifier.
func NewSESNotifier(region, fromAddress, fromName, frontendURL string, reviewers []string) (port.ReviewNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESNotifierWithClient(sesv2.NewFromConfig(cfg), fromAddress, fromName, frontendURL, reviewers), nil
}

// NewSESNotifierWithClient creates a ReviewNotifier over an existing client.
func NewSESNotifierWithClient(client EmailSender, fromAddress, fromName, frontendURL string, reviewers []string) port.ReviewNotifier {
	return &sesNotifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		reviewers:   reviewers,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (s *sesNotifier) NotifyReview(ctx context.Context, report *domain.IngestionReport) error {
	if len(s.reviewers) == 0 {
		return nil
	}

	reviewURL := fmt.Sprintf("%s/ports/%s/tariffs?status=review", s.frontendURL, report.PortID)
	subject := fmt.Sprintf("Tariff review needed: %s (%s)", report.FileName, report.PortID)
	textBody := BuildReviewText(report, reviewURL)
	htmlBody := buildReviewHTML(report, reviewURL)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.reviewers,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

// BuildReviewText renders the plain-text review request.
func BuildReviewText(report *domain.IngestionReport, reviewURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A tariff document for port %s needs manual review.\n\n", report.PortID)
	fmt.Fprintf(&b, "Document: %s\n", report.FileName)
	fmt.Fprintf(&b, "Extraction: %s (%s quality)\n", report.Extraction.Method, report.Extraction.QualityTier)
	fmt.Fprintf(&b, "Structured by: %s\n", report.StructuringSource)
	fmt.Fprintf(&b, "Overall confidence: %.2f\n", report.OverallConfidence)
	fmt.Fprintf(&b, "Tariffs awaiting review: %d\n", report.TariffsForReview)
	if len(report.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	fmt.Fprintf(&b, "\nReview: %s\n", reviewURL)
	return b.String()
}

func buildReviewHTML(report *domain.IngestionReport, reviewURL string) string {
	var warnings strings.Builder
	for _, w := range report.Warnings {
		fmt.Fprintf(&warnings, "<li>%s</li>", html.EscapeString(w))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Tariff review needed</h2>
  <p>A tariff document for port <strong>%s</strong> needs manual review.</p>
  <table style="border-collapse: collapse;">
    <tr><td>Document</td><td>%s</td></tr>
    <tr><td>Extraction</td><td>%s (%s quality)</td></tr>
    <tr><td>Overall confidence</td><td>%.2f</td></tr>
    <tr><td>Tariffs awaiting review</td><td>%d</td></tr>
  </table>
  <ul>%s</ul>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Review Tariffs</a>
  </p>
</body>
</html>`,
		html.EscapeString(report.PortID), html.EscapeString(report.FileName),
		report.Extraction.Method, report.Extraction.QualityTier, report.OverallConfidence,
		report.TariffsForReview, warnings.String(), html.EscapeString(reviewURL))
}
