// internal/funnel/notify/notify.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackhunterking/renoassist-forms/internal/common/config"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// OpsNotifier pushes a short summary of each submitted lead to the ops
// channels. Sends are best-effort: a failed email or SMS is logged and
// never surfaced to the submission flow.
type OpsNotifier struct {
	config    *config.IntegrationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewOpsNotifier(cfg *config.IntegrationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *OpsNotifier {
	return &OpsNotifier{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "ops_notifier"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// LeadSubmitted notifies ops about a freshly submitted inquiry over any
// enabled channel.
func (n *OpsNotifier) LeadSubmitted(ctx context.Context, inquiry *models.Inquiry) {
	if inquiry == nil {
		return
	}

	emailSent := false
	smsSent := false

	if n.config.AWS.SES.Enabled && n.sesClient != nil {
		if err := n.sendEmail(ctx, inquiry); err != nil {
			n.logger.Error("lead email notification failed", map[string]interface{}{
				"error":     err,
				"inquiryId": inquiry.ID,
			})
		} else {
			emailSent = true
		}
	}

	// SMS only for leads that want work started right away.
	if n.config.AWS.SNS.Enabled && n.snsClient != nil && inquiry.Urgency == "asap" {
		if err := n.sendSMS(ctx, inquiry); err != nil {
			n.logger.Error("lead SMS notification failed", map[string]interface{}{
				"error":     err,
				"inquiryId": inquiry.ID,
			})
		} else {
			smsSent = true
		}
	}

	n.logger.Info("lead notification processed", map[string]interface{}{
		"inquiryId": inquiry.ID,
		"emailSent": emailSent,
		"smsSent":   smsSent,
	})
}

func (n *OpsNotifier) sendEmail(ctx context.Context, inquiry *models.Inquiry) error {
	subject := fmt.Sprintf("New basement lead: %s (%s)", inquiry.HomeownerName, inquiry.City)
	body := buildLeadSummary(inquiry)

	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.config.AWS.SES.OpsEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.AWS.SES.FromEmail),
	})
	return err
}

func (n *OpsNotifier) sendSMS(ctx context.Context, inquiry *models.Inquiry) error {
	message := fmt.Sprintf("New basement lead: %s, %s, urgency %s, score %d",
		inquiry.HomeownerName, inquiry.City, inquiry.Urgency, totalCredit(inquiry))

	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.config.AWS.SNS.OpsPhone),
		Message:     aws.String(message),
	})
	return err
}

func buildLeadSummary(inquiry *models.Inquiry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Homeowner: %s\n", inquiry.HomeownerName)
	fmt.Fprintf(&b, "Email: %s\n", inquiry.Email)
	fmt.Fprintf(&b, "Phone: %s\n", inquiry.Phone)
	fmt.Fprintf(&b, "City: %s (%s)\n", inquiry.City, inquiry.PostalCode)
	fmt.Fprintf(&b, "Urgency: %s\n", inquiry.Urgency)
	fmt.Fprintf(&b, "Has design: %t\n", inquiry.HasDesign)
	fmt.Fprintf(&b, "Score: %d\n", totalCredit(inquiry))
	if inquiry.AdditionalDetails != "" {
		fmt.Fprintf(&b, "Details: %s\n", inquiry.AdditionalDetails)
	}
	return b.String()
}

func totalCredit(inquiry *models.Inquiry) int {
	total := 0
	for _, answer := range inquiry.Answers {
		total += answer.Credit
	}
	return total
}
