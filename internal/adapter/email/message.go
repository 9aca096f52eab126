package email

import (
	"bytes"
	"encoding/base64"
	"mime"
	"strings"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
)

const lineLength = 76

// buildMessage renders an RFC 5322 message with a UTF-8 plain text body.
func buildMessage(from string, msg notification.Message, now time.Time) []byte {
	var b bytes.Buffer
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	enc := base64.StdEncoding.EncodeToString([]byte(body))
	for len(enc) > lineLength {
		b.WriteString(enc[:lineLength] + "\r\n")
		enc = enc[lineLength:]
	}
	if enc != "" {
		b.WriteString(enc + "\r\n")
	}
	return b.Bytes()
}
