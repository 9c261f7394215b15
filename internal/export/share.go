// Package export produces the shareable forms of a list: its public URL, a QR
// code for that URL and a PDF table.
package export

import (
	"mime"
	"strings"
	"unicode"
)

// ShareURL is the public link encoded in the QR code.
func ShareURL(origin, publicID string) string {
	return strings.TrimRight(origin, "/") + "/list/" + publicID
}

// PDFFilename is "<title>.pdf" with characters unsafe in file names replaced.
func PDFFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "lista"
	}
	return name + ".pdf"
}

// ContentDisposition is an attachment header value for filename.
func ContentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
