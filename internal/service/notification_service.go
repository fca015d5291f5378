package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"therapytrack/internal/models"
)

// sesAPI is the part of the SES v2 client the notifier uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NotificationConfig configures outgoing email
type NotificationConfig struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

// NotificationService emails parents through Amazon SES
type NotificationService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewNotificationService creates the notifier. An empty FromEmail yields a
// disabled notifier that drops every message.
func NewNotificationService(ctx context.Context, cfg NotificationConfig, logger *zap.Logger) (*NotificationService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FromEmail == "" {
		logger.Info("email notifications disabled: SES_FROM_EMAIL not configured")
		return &NotificationService{logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email notifications enabled",
		zap.String("from", cfg.FromEmail),
		zap.String("region", cfg.AWSRegion),
	)
	return newNotificationService(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newNotificationService(client sesAPI, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		client:     client,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether messages are actually sent
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// SendProgressReportReady tells a parent the therapy's posttest is in and the
// progress report can be read
func (s *NotificationService) SendProgressReportReady(ctx context.Context, parent *models.User, therapy *models.TherapyWithChild) error {
	if !s.enabled {
		s.logger.Debug("skipping email, notifications disabled", zap.Int64("therapy_id", therapy.ID))
		return nil
	}

	link := fmt.Sprintf("%s/therapies/%d/report", s.appBaseURL, therapy.ID)
	subject := fmt.Sprintf("Progress report ready for %s", therapy.ChildName)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3a7d6b; color: white; text-decoration: none; border-radius: 5px; }
		.footer { margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<p>Hi %s,</p>
		<p>The posttest for <strong>%s</strong> (%s) has been recorded. The progress report comparing it with the pretest is now available.</p>
		<p><a href="%s" class="button">View progress report</a></p>
		<div class="footer">This is an automated email from TherapyTrack. Please do not reply.</div>
	</div>
</body>
</html>
`, parent.Name, therapy.ChildName, therapy.Title, link)

	textBody := fmt.Sprintf(`Hi %s,

The posttest for %s (%s) has been recorded. The progress report comparing it with the pretest is now available:
%s

---
This is an automated email from TherapyTrack. Please do not reply.
`, parent.Name, therapy.ChildName, therapy.Title, link)

	return s.sendEmail(ctx, parent.Email, subject, htmlBody, textBody)
}

func (s *NotificationService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}
