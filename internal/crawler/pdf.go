package crawler

import (
	"bytes"
	"regexp"

	"github.com/seoscan/seoscan/internal/model"
)

// pdfVersionRegex matches the %PDF-x.y header.
var pdfVersionRegex = regexp.MustCompile(`^%PDF-(\d+\.\d+)`)

// PDF Info dictionary entries. Values appear either as literal strings
// in parentheses or as hex strings in angle brackets.
var (
	pdfTitleRegex  = regexp.MustCompile(`/Title\s*\(([^)]*)\)`)
	pdfAuthorRegex = regexp.MustCompile(`/Author\s*\(([^)]*)\)`)
)

// AnalyzePDF validates the %PDF header and extracts version, Title, and
// Author via best-effort regex over the Info dictionary. Returns nil
// when the payload is not a PDF.
//
// Design decision: A full PDF object parser would be overkill for three
// metadata fields; the regex approach mirrors how little the audit needs
// from these documents. Hex-encoded metadata strings are simply skipped.
func AnalyzePDF(data []byte) *model.PDFInfo {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil
	}

	info := &model.PDFInfo{Bytes: int64(len(data))}

	if m := pdfVersionRegex.FindSubmatch(data); m != nil {
		info.Version = string(m[1])
	}
	if m := pdfTitleRegex.FindSubmatch(data); m != nil {
		info.Title = string(m[1])
	}
	if m := pdfAuthorRegex.FindSubmatch(data); m != nil {
		info.Author = string(m[1])
	}

	return info
}
