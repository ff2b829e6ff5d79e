// internal/funnel/notify/notify_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhunterking/renoassist-forms/internal/common/config"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{}, nil
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func testConfig(sesEnabled, snsEnabled bool) *config.IntegrationConfig {
	cfg := &config.IntegrationConfig{}
	cfg.AWS.Region = "ca-central-1"
	cfg.AWS.SES.Enabled = sesEnabled
	cfg.AWS.SES.FromEmail = "leads@renoassist.ca"
	cfg.AWS.SES.OpsEmail = "ops@renoassist.ca"
	cfg.AWS.SNS.Enabled = snsEnabled
	cfg.AWS.SNS.OpsPhone = "+14165550100"
	return cfg
}

func testInquiry() *models.Inquiry {
	return &models.Inquiry{
		ID:            "inq-1",
		HomeownerName: "Jordan_Smith",
		Email:         "jordan@example.com",
		Phone:         "4165550199",
		City:          "Toronto",
		PostalCode:    "M5V 2T6",
		Urgency:       "asap",
		HasDesign:     true,
		Answers: []models.ScoredAnswer{
			{QuestionID: 10, Answer: "Unfinished", Credit: 2},
			{QuestionID: 13, Answer: "Yes", Credit: 1},
		},
	}
}

// ==========================
// LeadSubmitted Tests
// ==========================

func TestLeadSubmitted_BothChannels(t *testing.T) {
	sesClient := &fakeSES{}
	snsClient := &fakeSNS{}
	notifier := NewOpsNotifier(testConfig(true, true), sesClient, snsClient, logger.NewTestLogger(t))

	notifier.LeadSubmitted(context.Background(), testInquiry())

	require.Len(t, sesClient.inputs, 1)
	email := sesClient.inputs[0]
	assert.Equal(t, "leads@renoassist.ca", *email.Source)
	assert.Equal(t, []string{"ops@renoassist.ca"}, email.Destination.ToAddresses)
	assert.Contains(t, *email.Message.Subject.Data, "Jordan_Smith")
	assert.Contains(t, *email.Message.Subject.Data, "Toronto")
	assert.Contains(t, *email.Message.Body.Text.Data, "Score: 3")
	assert.Contains(t, *email.Message.Body.Text.Data, "Urgency: asap")

	require.Len(t, snsClient.inputs, 1)
	sms := snsClient.inputs[0]
	assert.Equal(t, "+14165550100", *sms.PhoneNumber)
	assert.Contains(t, *sms.Message, "score 3")
}

func TestLeadSubmitted_NoSMSForLowUrgency(t *testing.T) {
	sesClient := &fakeSES{}
	snsClient := &fakeSNS{}
	notifier := NewOpsNotifier(testConfig(true, true), sesClient, snsClient, logger.NewTestLogger(t))

	inquiry := testInquiry()
	inquiry.Urgency = "1_3_months"
	notifier.LeadSubmitted(context.Background(), inquiry)

	require.Len(t, sesClient.inputs, 1)
	assert.Empty(t, snsClient.inputs)
}

func TestLeadSubmitted_ChannelsDisabled(t *testing.T) {
	sesClient := &fakeSES{}
	snsClient := &fakeSNS{}
	notifier := NewOpsNotifier(testConfig(false, false), sesClient, snsClient, logger.NewTestLogger(t))

	notifier.LeadSubmitted(context.Background(), testInquiry())

	assert.Empty(t, sesClient.inputs)
	assert.Empty(t, snsClient.inputs)
}

func TestLeadSubmitted_EmailFailureStillSendsSMS(t *testing.T) {
	sesClient := &fakeSES{err: errors.New("ses throttled")}
	snsClient := &fakeSNS{}
	notifier := NewOpsNotifier(testConfig(true, true), sesClient, snsClient, logger.NewTestLogger(t))

	notifier.LeadSubmitted(context.Background(), testInquiry())

	require.Len(t, sesClient.inputs, 1)
	require.Len(t, snsClient.inputs, 1)
}

func TestLeadSubmitted_NilClientsAndInquiry(t *testing.T) {
	notifier := NewOpsNotifier(testConfig(true, true), nil, nil, logger.NewTestLogger(t))

	// No configured clients and a nil inquiry must both be harmless.
	notifier.LeadSubmitted(context.Background(), testInquiry())
	notifier.LeadSubmitted(context.Background(), nil)
}

func TestBuildLeadSummary_OmitsEmptyDetails(t *testing.T) {
	inquiry := testInquiry()
	inquiry.AdditionalDetails = ""
	assert.NotContains(t, buildLeadSummary(inquiry), "Details:")

	inquiry.AdditionalDetails = "walkout preferred"
	assert.Contains(t, buildLeadSummary(inquiry), "Details: walkout preferred")
}
