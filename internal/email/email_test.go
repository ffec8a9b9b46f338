package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationLink(t *testing.T) {
	assert.Equal(t, "https://app.example/verify/abc", VerificationLink("https://app.example/", "abc"))
	assert.Equal(t, "http://localhost:3000/verify/abc", VerificationLink("http://localhost:3000", "abc"))
}

func TestVerificationMessage_EscapesNameInHTML(t *testing.T) {
	msg, err := VerificationMessage("bob@gmail.com", "<b>Bob</b>", "http://localhost:3000/verify/t1", 3)
	require.NoError(t, err)

	assert.Equal(t, "bob@gmail.com", msg.To)
	assert.Equal(t, verificationSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;b&gt;Bob&lt;/b&gt;")
	assert.Contains(t, msg.HTML, "http://localhost:3000/verify/t1")
	assert.Contains(t, msg.HTML, "3 free credits")
	assert.Contains(t, msg.Text, "Hi <b>Bob</b>,")
	assert.Contains(t, msg.Text, "http://localhost:3000/verify/t1")
}

func TestDisabledSender(t *testing.T) {
	_, err := NewDisabledSender("smtp not configured").Send(context.Background(), Message{To: "x@gmail.com"})
	assert.EqualError(t, err, "smtp not configured")

	_, err = NewDisabledSender("").Send(context.Background(), Message{To: "x@gmail.com"})
	assert.EqualError(t, err, "email sender disabled")
}

func TestNewSMTPSender_Validation(t *testing.T) {
	_, err := NewSMTPSender("", 587, "", "", "from@gmail.com", "", false)
	assert.Error(t, err)

	_, err = NewSMTPSender("smtp.gmail.com", 587, "", "", "", "", false)
	assert.Error(t, err)

	s, err := NewSMTPSender("smtp.gmail.com", 0, "user@gmail.com", "pw", "", "Marinova", false)
	require.NoError(t, err)
	assert.Equal(t, 587, s.port)
	assert.Equal(t, "user@gmail.com", s.from)
}

func TestSMTPSender_RejectsEmptyRecipient(t *testing.T) {
	s, err := NewSMTPSender("smtp.gmail.com", 587, "", "", "from@gmail.com", "", false)
	require.NoError(t, err)
	_, err = s.Send(context.Background(), Message{})
	assert.Error(t, err)
}

func TestBuildMessage_MultipartAlternative(t *testing.T) {
	raw, err := buildMessage("from@gmail.com", "Marinova", "<id@smtp>", Message{
		To:      "to@gmail.com",
		Subject: "Hello",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: Marinova <from@gmail.com>\r\n")
	assert.Contains(t, s, "To: to@gmail.com\r\n")
	assert.Contains(t, s, "Message-ID: <id@smtp>\r\n")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "Content-Type: text/plain")
	assert.Contains(t, s, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(s, "--\r\n"))
}
