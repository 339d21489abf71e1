// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfmeta pulls seed metadata out of local PDF files, best effort.
// A paper's DOI almost always appears in the front matter, so only the
// leading pages are scanned. Implements: docs/ARCHITECTURE § Seed Intake.
package pdfmeta

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiPattern matches registrant/suffix DOI forms, e.g. 10.1145/3442188.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// doiScanPages bounds how many leading pages are searched.
const doiScanPages = 3

// ExtractDOI scans the leading pages of a PDF for a DOI. An unreadable page
// is skipped; a PDF without a detectable DOI returns empty, not an error.
func ExtractDOI(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	maxPages := doiScanPages
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			return doi, nil
		}
	}
	return "", nil
}

// FindDOI returns the first plausible DOI in the text, lowercased, or empty.
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if plausibleDOI(match) {
			return strings.ToLower(match)
		}
	}
	return ""
}

func plausibleDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash > 0 && slash < len(doi)-1
}
