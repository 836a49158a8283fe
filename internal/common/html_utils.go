package common

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText gets all text content from an HTML node and its children
func ExtractText(node *html.Node) string {
	var text strings.Builder

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(node)
	return strings.TrimSpace(text.String())
}

// GetAttribute gets the value of an attribute from a node
func GetAttribute(node *html.Node, attrKey string) string {
	if node.Type != html.ElementNode {
		return ""
	}
	for _, attr := range node.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// HasAttribute checks if a node has a specific attribute
func HasAttribute(node *html.Node, attrKey string) bool {
	if node.Type != html.ElementNode {
		return false
	}
	for _, attr := range node.Attr {
		if attr.Key == attrKey {
			return true
		}
	}
	return false
}

// NormalizeSpace collapses runs of whitespace into single spaces and trims
// the result. Page text arrives with arbitrary indentation and newlines.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateChars hard-caps a string at max characters (runes, not bytes).
// Excess is dropped silently.
func TruncateChars(s string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
