package mailparse

import (
	"bytes"
	"net/mail"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/mailvector/dto"
	"github.com/customeros/mailvector/interfaces"
	"github.com/customeros/mailvector/internal/logger"
	"github.com/customeros/mailvector/internal/utils"
)

type mailParserService struct {
	log logger.Logger
}

func NewMailParserService(log logger.Logger) interfaces.MailParserService {
	return &mailParserService{
		log: log,
	}
}

// ParseRawMessage converts a raw RFC822 message into a RawMessage. When the
// message carries only an HTML body, the text body is derived from it.
func (s *mailParserService) ParseRawMessage(raw []byte) (*dto.RawMessage, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty message")
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "parse mime envelope")
	}

	message := &dto.RawMessage{
		MessageID: utils.NormalizeMessageID(envelope.GetHeader("Message-ID")),
		ThreadID:  utils.NormalizeMessageID(envelope.GetHeader("In-Reply-To")),
		Subject:   envelope.GetHeader("Subject"),
		Body:      envelope.Text,
	}

	if from, err := envelope.AddressList("From"); err == nil && len(from) > 0 {
		message.From = from[0].Address
	}
	if to, err := envelope.AddressList("To"); err == nil {
		for _, addr := range to {
			message.To = append(message.To, addr.Address)
		}
	}

	if sentAt, err := mail.ParseDate(envelope.GetHeader("Date")); err == nil {
		message.SentAt = utils.TimePtr(sentAt.UTC())
	}

	if strings.TrimSpace(message.Body) == "" && envelope.HTML != "" {
		text, err := html2text.FromString(envelope.HTML, html2text.Options{TextOnly: true})
		if err != nil {
			s.log.Warnf("html body conversion failed for %s: %v", message.MessageID, err)
		} else {
			message.Body = text
		}
	}

	for _, attachment := range envelope.Attachments {
		message.Attachments = append(message.Attachments, dto.AttachmentDescriptor{
			ID:        attachment.ContentID,
			Filename:  attachment.FileName,
			MimeType:  attachment.ContentType,
			SizeBytes: int64(len(attachment.Content)),
		})
	}
	message.HasAttachments = len(message.Attachments) > 0

	return message, nil
}
