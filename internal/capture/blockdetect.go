package capture

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockNeedles = []string{
	"robot check",
	"enter the characters you see below",
	"/errors/validatecaptcha",
	"sorry, we just need to make sure you're not a robot",
}

// IsBlocked reports whether a results page is a block/CAPTCHA interstitial
// rather than actual search results. It checks the known needle phrases and
// inspects the document for the CAPTCHA form Amazon serves.
func IsBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, needle := range blockNeedles {
		if strings.Contains(lower, needle) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable content from a page that claimed to load; treat as
		// not blocked and let the card selector wait decide.
		return false
	}

	blocked := false
	doc.Find("form").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		action, _ := sel.Attr("action")
		if strings.Contains(strings.ToLower(action), "validatecaptcha") {
			blocked = true
			return false
		}
		return true
	})
	return blocked
}
