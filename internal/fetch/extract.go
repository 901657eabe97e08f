package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// maxExtractedChars caps extracted page text so one long page cannot
// dominate an enriched prompt.
const maxExtractedChars = 5000

// ExtractText strips markup from an HTML document and returns its visible
// text with whitespace collapsed, capped at maxExtractedChars.
func ExtractText(htmlDoc string) (string, error) {
	root, err := html.Parse(strings.NewReader(htmlDoc))
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if len(text) > maxExtractedChars {
		text = text[:maxExtractedChars]
	}
	return text, nil
}
