package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"satcerts/internal/textutil"
)

// Certificate is one row of the portal's results table.
type Certificate struct {
	Serial      string
	Status      string
	Kind        string
	ValidFrom   string
	ValidTo     string
	DownloadURL string
}

// CertificateReport is everything a successful lookup recovers: the
// registered name and the certificate rows. An empty Certificates slice is
// a valid outcome; the portal knows the RFC but lists nothing for it.
type CertificateReport struct {
	RazonSocial  string
	Certificates []Certificate
}

// column headings of the results table; used to reject label text when
// hunting for the registered name.
var tableHeadings = []string{
	"numero de serie",
	"razon social",
	"estado del certificado",
	"tipo de certificado",
	"fecha inicial",
	"fecha final",
	"certificados del contribuyente",
}

// ParseCertificates extracts the certificate report from an accepted
// results page. rfc is the submitted identifier; its echoes on the page are
// skipped when locating the registered name.
func ParseCertificates(html, rfc string) (*CertificateReport, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	report := &CertificateReport{
		RazonSocial: findRazonSocial(doc, rfc),
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, textutil.NormalizeName(cell.Text()))
		})
		if !looksLikeSerial(texts[0]) {
			return
		}

		cert := Certificate{Serial: strings.ReplaceAll(texts[0], " ", "")}
		rest := texts[1:]
		// some portal revisions echo the RFC in the second column
		if len(rest) > 0 && strings.EqualFold(rest[0], rfc) {
			rest = rest[1:]
		}
		fields := []*string{&cert.Status, &cert.Kind, &cert.ValidFrom, &cert.ValidTo}
		for i := 0; i < len(fields) && i < len(rest); i++ {
			*fields[i] = rest[i]
		}
		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			cert.DownloadURL = strings.TrimSpace(href)
		}
		report.Certificates = append(report.Certificates, cert)
	})

	return report, nil
}

// looksLikeSerial reports whether text is a certificate serial: digits
// only, at least eight of them.
func looksLikeSerial(text string) bool {
	text = strings.ReplaceAll(text, " ", "")
	if len(text) < 8 {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// findRazonSocial hunts for the registered name on the results page. The
// labeled value wins; otherwise the first standalone text long enough to be
// a company name that is neither an RFC echo nor a table heading.
func findRazonSocial(doc *goquery.Document, rfc string) string {
	var labeled string
	doc.Find("td, span, label").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Children().Length() > 0 {
			return true
		}
		text := textutil.NormalizeName(sel.Text())
		if !textutil.ContainsFolded(text, "razon social") {
			return true
		}
		if value := valueAfterLabel(sel, text, rfc); value != "" {
			labeled = value
			return false
		}
		return true
	})
	if labeled != "" {
		return labeled
	}

	var fallback string
	doc.Find("span, label, b").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Children().Length() > 0 {
			return true
		}
		text := textutil.NormalizeName(sel.Text())
		if len([]rune(text)) < 11 {
			return true
		}
		if rfc != "" && textutil.ContainsFolded(text, rfc) {
			return true
		}
		if isTableHeading(text) || looksLikeSerial(text) {
			return true
		}
		fallback = text
		return false
	})
	return fallback
}

// valueAfterLabel extracts the name that follows a "Razón Social" label,
// either after a colon in the same element or in the next sibling.
func valueAfterLabel(sel *goquery.Selection, text, rfc string) string {
	if idx := strings.Index(text, ":"); idx >= 0 {
		value := strings.TrimSpace(text[idx+1:])
		if value != "" && !strings.EqualFold(value, rfc) {
			return value
		}
	}
	next := textutil.NormalizeName(sel.Next().Text())
	if next != "" && !strings.EqualFold(next, rfc) && !isTableHeading(next) {
		return next
	}
	return ""
}

func isTableHeading(text string) bool {
	for _, heading := range tableHeadings {
		if textutil.ContainsFolded(text, heading) {
			return true
		}
	}
	return false
}
