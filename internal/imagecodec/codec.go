// Package imagecodec converts between self-describing image data URLs
// (data:image/<subtype>;base64,<payload>) and raw bytes.
package imagecodec

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"tryon/internal/domain"
)

// ExpectedFormat is quoted in every decode error.
const ExpectedFormat = "data:image/<type>;base64,<...>"

var dataURLPattern = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,(.+)$`)

// Payload is a decoded image held in memory for the duration of one request.
type Payload struct {
	MIME string
	Data []byte
}

// Decode parses a base64 image data URL. Anything else, including a payload
// that is not valid base64, fails with domain.ErrMalformedInput.
func Decode(dataURL string) (Payload, error) {
	m := dataURLPattern.FindStringSubmatch(dataURL)
	if m == nil {
		return Payload{}, domain.MalformedInput("expected a base64 data URL: %s", ExpectedFormat)
	}
	data, err := decodeBase64(m[2])
	if err != nil {
		return Payload{}, domain.MalformedInput("invalid base64 payload for %s", m[1])
	}
	if len(data) == 0 {
		return Payload{}, domain.MalformedInput("empty image payload")
	}
	return Payload{MIME: m[1], Data: data}, nil
}

// Encode renders p as a data URL. Decode(Encode(p)) returns p for every
// payload with an image/* MIME type and non-empty data.
func Encode(p Payload) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(p.MIME) + base64.StdEncoding.EncodedLen(len(p.Data)))
	b.WriteString("data:")
	b.WriteString(p.MIME)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(p.Data))
	return b.String()
}

// Extension maps a MIME type to the file extension used for uploads and
// object names.
func Extension(mime string) string {
	sub := strings.ToLower(strings.TrimSpace(mime))
	sub = strings.TrimPrefix(sub, "image/")
	if i := strings.IndexAny(sub, ";+"); i >= 0 {
		sub = sub[:i]
	}
	switch sub {
	case "jpeg", "jpg", "pjpeg":
		return "jpg"
	case "":
		return "bin"
	default:
		return sub
	}
}

// Sniff detects the image MIME type of data and returns fallback when the
// bytes are not a recognised image.
func Sniff(data []byte, fallback string) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return fallback
}

// decodeBase64 accepts padded and unpadded standard encodings, and the URL
// alphabet some clients emit.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
