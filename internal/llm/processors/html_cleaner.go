package processors

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	commentRegex    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	newlineRegex    = regexp.MustCompile(`\n{3,}`)

	// Boilerplate that survives tag stripping on JS-heavy pages
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bJavaScript\s+is\s+disabled\b.*?enabled\.`),
		regexp.MustCompile(`\bCookies?\s+are\s+disabled\b.*?enabled\.`),
		regexp.MustCompile(`\bPlease\s+enable\s+JavaScript\b.*?`),
		regexp.MustCompile(`\bThis\s+site\s+requires\s+JavaScript\b.*?`),
	}
)

// HTMLCleaner strips job posting pages down to the text worth sending to a
// chat model
type HTMLCleaner struct {
	// Tags to remove completely
	removeTags []string
	// Attributes to keep (others will be removed)
	keepAttributes []string
}

// NewHTMLCleaner creates a new HTML cleaner instance
func NewHTMLCleaner() *HTMLCleaner {
	return &HTMLCleaner{
		removeTags: []string{
			"script", "style", "noscript", "iframe", "object", "embed",
			"applet", "form", "input", "button", "select", "textarea",
			"nav", "header", "footer", "aside", "menu", "menuitem",
			"svg", "path", "g", "defs", "use", "symbol",
			"meta", "link", "title", "base",
		},
		keepAttributes: []string{
			"class", "id", "data-testid", "data-test", "aria-label", "title",
		},
	}
}

// CleanHTML removes unnecessary elements and clutter from HTML while keeping
// the markup structure
func (hc *HTMLCleaner) CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	for _, tag := range hc.removeTags {
		doc.Find(tag).Remove()
	}

	hc.cleanAttributes(doc)
	hc.removeEmptyElements(doc)

	cleanedHTML, err := doc.Html()
	if err != nil {
		return "", err
	}

	return hc.cleanText(cleanedHTML), nil
}

// ExtractJobContent extracts the text most likely to describe the job itself.
// LinkedIn's description containers are checked first, then generic posting
// patterns, then the whole body as a last resort.
func (hc *HTMLCleaner) ExtractJobContent(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	jobSelectors := []string{
		// LinkedIn job view containers
		".jobs-description__content", ".jobs-description",
		".jobs-box__html-content", "#job-details",
		// Main content areas
		"main", "[role='main']", "#main", ".main",
		// Generic job posting containers
		".job", ".job-posting", ".job-detail", ".job-description",
		".posting", ".position", ".vacancy", ".opportunity",
		// Content areas
		".content", ".description", ".details", ".info",
		// Article/section containers
		"article", "section[class*='job']", "section[class*='posting']",
		// Specific data attributes
		"[data-testid*='job']", "[data-test*='job']", "[data-qa*='job']",
	}

	var contentParts []string
	for _, selector := range jobSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" && len(text) > 50 {
				contentParts = append(contentParts, text)
			}
		})
		// The first matching selector family wins; mixing generic containers
		// into a LinkedIn match only duplicates text
		if len(contentParts) > 0 {
			break
		}
	}

	if len(contentParts) == 0 {
		if bodyText := doc.Find("body").Text(); bodyText != "" {
			contentParts = append(contentParts, bodyText)
		}
	}

	return hc.cleanExtractedText(strings.Join(contentParts, "\n\n")), nil
}

// cleanAttributes removes unwanted attributes from elements
func (hc *HTMLCleaner) cleanAttributes(doc *goquery.Document) {
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		for _, attr := range s.Nodes[0].Attr {
			keep := false
			for _, keepAttr := range hc.keepAttributes {
				if attr.Key == keepAttr {
					keep = true
					break
				}
			}
			if !keep {
				s.RemoveAttr(attr.Key)
			}
		}
	})
}

// removeEmptyElements removes elements that are empty or contain only whitespace
func (hc *HTMLCleaner) removeEmptyElements(doc *goquery.Document) {
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) == "" && s.Children().Length() == 0 {
			s.Remove()
		}
	})
}

// cleanText strips comments and collapses whitespace in HTML output
func (hc *HTMLCleaner) cleanText(html string) string {
	html = commentRegex.ReplaceAllString(html, "")
	html = whitespaceRegex.ReplaceAllString(html, " ")
	return strings.TrimSpace(html)
}

// cleanExtractedText cleans extracted text content
func (hc *HTMLCleaner) cleanExtractedText(text string) string {
	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = newlineRegex.ReplaceAllString(text, "\n\n")

	for _, pattern := range noisePatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text)
}

// GetCleanTextLength returns the approximate token count for the cleaned text
func (hc *HTMLCleaner) GetCleanTextLength(text string) int {
	// Rough estimation: ~4 characters per token
	return len(text) / 4
}
