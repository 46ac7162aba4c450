package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/creativeplayground/accounts/internal/logging"
)

// Service delivers transactional account emails over SMTP.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

// SendVerificationEmail sends the account activation link.
// Designed to be called in a goroutine; failures are logged, not surfaced
// to the registering user.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	body, err := renderMessage(verificationTemplate, messageData{
		Heading: "Confirm your email",
		Link:    link,
	})
	if err != nil {
		logger.Error("failed to render verification email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(toEmail, "Confirm your email address", body); err != nil {
		logger.Error("failed to send verification email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

// SendPasswordResetEmail sends the password reset link.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	body, err := renderMessage(resetTemplate, messageData{
		Heading: "Reset your password",
		Link:    link,
	})
	if err != nil {
		logger.Error("failed to render password reset email", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(toEmail, "Reset your password", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) send(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

type messageData struct {
	Heading string
	Link    string
}

func renderMessage(tmpl *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>{{.Heading}}</h2>
    <p>Thanks for signing up. Click the button below to verify your email address and activate your account.</p>
    <p>
        <a href="{{.Link}}" style="display: inline-block; background-color: #2563EB; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Verify Email</a>
    </p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #2563EB;">{{.Link}}</p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">This link expires in 24 hours.</p>
</body>
</html>
`))

var resetTemplate = template.Must(template.New("reset").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>{{.Heading}}</h2>
    <p>You asked to reset your password. Click the button below to choose a new one.</p>
    <p>
        <a href="{{.Link}}" style="display: inline-block; background-color: #2563EB; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Reset Password</a>
    </p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #2563EB;">{{.Link}}</p>
    <p>If you didn't request this, ignore the email and your password will stay unchanged.</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">This link expires in 1 hour.</p>
</body>
</html>
`))
