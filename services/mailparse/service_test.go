package mailparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailvector/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

const plainMessage = "Message-ID: <abc123@example.com>\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"From: Alice Sender <alice@example.com>\r\n" +
	"To: Bob One <bob@example.com>, carol@example.com\r\n" +
	"Subject: Project update\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"The milestones are on track.\r\n"

const htmlOnlyMessage = "Message-ID: <html456@example.com>\r\n" +
	"From: alice@example.com\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Newsletter\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Monthly highlights and <b>key wins</b>.</p></body></html>\r\n"

func TestParseRawMessage_PlainTextBody(t *testing.T) {
	// Arrange
	svc := NewMailParserService(getLogger())

	// Act
	message, err := svc.ParseRawMessage([]byte(plainMessage))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "abc123@example.com", message.MessageID)
	assert.Equal(t, "Project update", message.Subject)
	assert.Equal(t, "alice@example.com", message.From)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, message.To)
	assert.Contains(t, message.Body, "milestones are on track")
	require.NotNil(t, message.SentAt)
	assert.Equal(t, 2006, message.SentAt.Year())
	assert.False(t, message.HasAttachments)
}

func TestParseRawMessage_HTMLOnlyBodyFallsBackToText(t *testing.T) {
	// Arrange
	svc := NewMailParserService(getLogger())

	// Act
	message, err := svc.ParseRawMessage([]byte(htmlOnlyMessage))

	// Assert
	require.NoError(t, err)
	assert.Contains(t, message.Body, "Monthly highlights")
	assert.Contains(t, message.Body, "key wins")
	assert.NotContains(t, message.Body, "<b>")
}

func TestParseRawMessage_WithAttachment(t *testing.T) {
	// Arrange
	boundary := "XBOUNDARYX"
	raw := strings.Join([]string{
		"Message-ID: <att789@example.com>",
		"From: alice@example.com",
		"To: bob@example.com",
		"Subject: Report attached",
		"Content-Type: multipart/mixed; boundary=" + boundary,
		"",
		"--" + boundary,
		"Content-Type: text/plain",
		"",
		"See the attached report.",
		"--" + boundary,
		"Content-Type: application/pdf; name=report.pdf",
		"Content-Disposition: attachment; filename=report.pdf",
		"",
		"%PDF-1.4 fake content",
		"--" + boundary + "--",
		"",
	}, "\r\n")
	svc := NewMailParserService(getLogger())

	// Act
	message, err := svc.ParseRawMessage([]byte(raw))

	// Assert
	require.NoError(t, err)
	assert.Contains(t, message.Body, "attached report")
	require.True(t, message.HasAttachments)
	require.Len(t, message.Attachments, 1)
	assert.Equal(t, "report.pdf", message.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", message.Attachments[0].MimeType)
	assert.Greater(t, message.Attachments[0].SizeBytes, int64(0))
}

func TestParseRawMessage_EmptyInput(t *testing.T) {
	// Arrange
	svc := NewMailParserService(getLogger())

	// Act
	message, err := svc.ParseRawMessage(nil)

	// Assert
	require.Error(t, err)
	assert.Nil(t, message)
}
