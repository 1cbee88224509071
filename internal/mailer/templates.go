package mailer

import (
	"bytes"
	"html/template"
)

// verificationTmpl is the account verification mail.  Inline styles keep it
// readable in clients that strip <style> blocks.
var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Verify Your Email to Get Started</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; text-align: center;">
    <div style="max-width: 900px; background-color: #ffffff; padding: 20px; margin: 40px auto; border-radius: 8px;">
        <h2 style="color: #333;">Dear {{.Name}}, Welcome to {{.SiteTitle}} 🎉</h2>
        <p style="color: #555; font-size: 16px;">You're almost there! Click the button below to verify your email and activate your account.</p>
        <a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background-color: #007bff; color: #ffffff; text-decoration: none; border-radius: 6px; font-weight: bold; margin-top: 20px;">Verify My Email</a>
        <p style="color: #555; font-size: 16px;">If the button above doesn't work, copy and paste the following link into your browser:</p>
        <p>{{.Link}}</p>
        <p><strong>This link will expire in {{.Expiry}}, so be sure to verify soon!</strong></p>
        <p style="font-size: 12px; color: #777;">If you did not sign up for this account, you can ignore this email.</p>
    </div>
</body>
</html>`))

// VerificationEmail renders the account verification message for a newly
// registered user.
func (m *Mailer) VerificationEmail(to, name, link, expiry string) (Email, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Name, SiteTitle, Link, Expiry string
	}{Name: name, SiteTitle: m.siteTitle, Link: link, Expiry: expiry})
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      to,
		Subject: "Verify your email for " + m.siteTitle,
		HTML:    buf.String(),
	}, nil
}
