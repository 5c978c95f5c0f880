package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"

	"tontine-backend/config"
	"tontine-backend/directory"
)

// Notification is one rendered message, ready for fan-out. Recipients
// carry their own FCM tokens and email addresses so delivery never has to
// re-query the group record.
type Notification struct {
	Title      string
	Body       string
	HTMLBody   string // optional pre-rendered email body
	Data       map[string]string
	Recipients []directory.Profile
	SendEmail  bool
}

// Notifier delivers notifications best-effort: failures are logged and
// never roll back the state change that produced them.
type Notifier interface {
	Send(ctx context.Context, n Notification)
}

type NotificationService struct {
	messaging *messaging.Client // nil when Firebase is not configured
}

// NewNotificationService initializes the Firebase Admin SDK. The service
// degrades to email-only (or log-only) when credentials are missing, so a
// dev environment runs without any Firebase setup.
func NewNotificationService(ctx context.Context) *NotificationService {
	ns := &NotificationService{}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(config.AppConfig.FirebaseCredPath))
	if err != nil {
		log.Println("⚠️  Firebase not configured, push notifications disabled:", err)
		return ns
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Println("⚠️  Firebase messaging unavailable, push notifications disabled:", err)
		return ns
	}
	ns.messaging = client

	log.Println("✅ Firebase messaging initialized")
	return ns
}

func (ns *NotificationService) Send(ctx context.Context, n Notification) {
	ns.sendPush(ctx, n)

	if n.SendEmail {
		for _, r := range n.Recipients {
			if r.Email == "" {
				continue
			}
			html := n.HTMLBody
			if html == "" {
				html = buildAlertEmailHTML(r.DisplayName, n.Body)
			}
			ns.sendEmail(r.Email, r.DisplayName, n.Title, html)
		}
	}
}

func (ns *NotificationService) sendPush(ctx context.Context, n Notification) {
	if ns.messaging == nil {
		return
	}

	seen := make(map[string]bool)
	var tokens []string
	for _, r := range n.Recipients {
		if r.FCMToken == "" || seen[r.FCMToken] {
			continue
		}
		seen[r.FCMToken] = true
		tokens = append(tokens, r.FCMToken)
	}
	if len(tokens) == 0 {
		return
	}

	resp, err := ns.messaging.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data:   n.Data,
		Tokens: tokens,
	})
	if err != nil {
		log.Printf("❌ FCM send error: %v", err)
		return
	}
	if resp.FailureCount > 0 {
		log.Printf("⚠️  FCM delivered %d/%d messages", resp.SuccessCount, len(tokens))
	} else {
		log.Printf("✅ Push notification sent to %d devices", resp.SuccessCount)
	}
}

// ============================================================
// EMAIL NOTIFICATIONS via SendGrid
// ============================================================

func (ns *NotificationService) sendEmail(toEmail, toName, subject, htmlBody string) {
	if config.AppConfig.SendGridAPIKey == "" {
		log.Printf("⚠️  SendGrid API key not set, skipping email to %s", toEmail)
		return
	}

	from := mail.NewEmail(config.AppConfig.AppName, config.AppConfig.SendGridFrom)
	to := mail.NewEmail(toName, toEmail)
	// SendGrid wants a non-empty plain part alongside the HTML body.
	message := mail.NewSingleEmail(from, subject, to, "Open the app for details.", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("❌ Email send error: %v", err)
		return
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("✅ Email sent to %s", toEmail)
	} else {
		log.Printf("⚠️  SendGrid returned status: %d", resp.StatusCode)
	}
}

// ============================================================
// EMAIL TEMPLATES
// ============================================================

func buildAlertEmailHTML(name, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">💰 %s</h2>
		<p>Hi <strong>%s</strong>,</p>
		<p>%s</p>
		<p>Open the app to see your group.</p>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— %s</p>
	</div>
</body>
</html>`, config.AppConfig.AppName, name, body, config.AppConfig.AppName)
}

func buildInviteEmailHTML(inviterName, groupName, inviteCode string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">🎉 You're invited!</h2>
		<p><strong>%s</strong> invited you to join the savings group <strong>"%s"</strong>.</p>
		<p>Use this code to join:</p>
		<p style="font-size: 28px; letter-spacing: 4px; font-weight: bold; text-align: center; background: #f8f9fa; border-radius: 8px; padding: 16px;">%s</p>
		<div style="margin: 24px 0;">
			<a href="%s" style="background: #1DB954; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Join Now</a>
		</div>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— %s</p>
	</div>
</body>
</html>`, inviterName, groupName, inviteCode, config.AppConfig.AppURL, config.AppConfig.AppName)
}
