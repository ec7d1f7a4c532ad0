package tracker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noTitle is returned when a page carries no <title> element.
const noTitle = "No Title"

// The edit annotation looks like "(ред. 05-Янв-24 10:15)". RE2's \w is ASCII
// only, so the Cyrillic month abbreviation is matched explicitly.
var editDateRe = regexp.MustCompile(`ред\. (\d{2}-[а-яА-Яё]{3}-\d{2} \d{2}:\d{2})`)

var errNoDownloadLink = errors.New("no torrent download link found")

// EditDate extracts the last-edited marker from page markup. It returns ""
// when the page was never edited or the markup does not match; callers treat
// that as "no known marker", not as an error.
func (*Client) EditDate(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	text := doc.Find("span.posted_since.hide-for-print").First().Text()
	if text == "" {
		return ""
	}
	m := editDateRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// Title extracts the release title from page markup: the document title up to
// the first "/" separator, trimmed. Pages without a <title> element get a
// fixed placeholder.
func (*Client) Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return noTitle
	}
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return noTitle
	}
	title, _, _ := strings.Cut(sel.Text(), "/")
	return strings.TrimSpace(title)
}

// findDownloadLink locates the torrent download anchor on a release page and
// returns its (relative) href.
func findDownloadLink(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	href, ok := doc.Find(`a[href*='dl.php?t=']`).First().Attr("href")
	if !ok {
		return "", errNoDownloadLink
	}
	return href, nil
}
