package portal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"satcerts/internal/config"
	"satcerts/internal/textutil"
)

// Verdict is the classification of a portal response page.
type Verdict string

const (
	// VerdictAccepted means the portal accepted the submission and rendered
	// the certificate results.
	VerdictAccepted Verdict = "accepted"
	// VerdictWrongCaptcha means the portal rejected the CAPTCHA solution.
	VerdictWrongCaptcha Verdict = "wrong_captcha"
	// VerdictUnknownIdentifier means the portal does not know the RFC.
	VerdictUnknownIdentifier Verdict = "unknown_identifier"
	// VerdictNoSignal means the page matches no marker yet.
	VerdictNoSignal Verdict = "no_signal"
)

// Classify matches a page against the configured markers. The success
// marker is structural (a CSS selector); the failure markers are phrases
// matched case- and accent-insensitively, so portal copy like "Captcha"
// versus "captcha" or "existe" versus "existé" classifies the same way.
func Classify(html string, markers config.Markers) Verdict {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return VerdictNoSignal
	}

	if markers.SuccessSelector != "" && doc.Find(markers.SuccessSelector).Length() > 0 {
		return VerdictAccepted
	}

	text := doc.Text()
	for _, phrase := range markers.UnknownIdentifier {
		if textutil.ContainsFolded(text, phrase) {
			return VerdictUnknownIdentifier
		}
	}
	for _, phrase := range markers.WrongCaptcha {
		if textutil.ContainsFolded(text, phrase) {
			return VerdictWrongCaptcha
		}
	}
	return VerdictNoSignal
}
