package email

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const verificationSubject = "Verify Your Email - Marinova Ocean Intelligence"

var verificationHTML = htmltemplate.Must(htmltemplate.New("verify_html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Welcome to Marinova!</h1>
  <p>Hi {{.FullName}},</p>
  <p>Thank you for signing up. Your account comes with <strong>{{.Credits}} free credits</strong> for the Forecast and Insights features once your email address is verified.</p>
  <p><a href="{{.Link}}">Verify Email Address</a></p>
  <p>Or copy and paste this link in your browser:<br>{{.Link}}</p>
  <p>If you didn't create this account, you can safely ignore this email.</p>
</body>
</html>
`))

var verificationText = texttemplate.Must(texttemplate.New("verify_text").Parse(`Hi {{.FullName}},

Thank you for signing up for Marinova!

Please verify your email address by opening this link:
{{.Link}}

After verification you can use your {{.Credits}} free credits on the Forecast and Insights features.

If you didn't create this account, you can safely ignore this email.
`))

type verificationData struct {
	FullName string
	Link     string
	Credits  int
}

// VerificationLink arma el enlace que el frontend usa para confirmar el correo.
func VerificationLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/verify/" + token
}

// VerificationMessage construye el correo de verificación de cuenta.
func VerificationMessage(to, fullName, link string, credits int) (Message, error) {
	data := verificationData{FullName: fullName, Link: link, Credits: credits}

	var html, text bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := verificationText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: verificationSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
