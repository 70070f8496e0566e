package utils

import (
	"bytes"
	"path/filepath"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether an attachment should be treated as a PDF document.
// Mail clients regularly send PDFs as application/octet-stream, so the
// filename and the leading magic bytes are checked as well.
func IsPDF(contentType, filename string, data []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic)
}

func GetFileExtensionFromContentType(contentType string) string {
	contentType = strings.ToLower(contentType)

	switch {
	case strings.Contains(contentType, "pdf"):
		return "pdf"
	case strings.Contains(contentType, "jpeg") || strings.Contains(contentType, "jpg"):
		return "jpg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "word") || strings.Contains(contentType, "doc"):
		return "docx"
	case strings.Contains(contentType, "excel") || strings.Contains(contentType, "xls") || strings.Contains(contentType, "spreadsheet"):
		return "xlsx"
	case strings.Contains(contentType, "csv"):
		return "csv"
	case strings.Contains(contentType, "text/plain"):
		return "txt"
	case strings.Contains(contentType, "html"):
		return "html"
	case strings.Contains(contentType, "zip") || strings.Contains(contentType, "compressed"):
		return "zip"
	default:
		return "bin"
	}
}
