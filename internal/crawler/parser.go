package crawler

import (
	"bytes"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// PageKey maps a site-relative URL path to the file key it is stored under.
// Directory-style paths get an index.html.
func PageKey(urlPath string) string {
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return urlPath + "index.html"
	}
	if path.Ext(urlPath) == "" {
		return urlPath + "/index.html"
	}
	return urlPath
}

// cleanHTML removes scripts, styles and comments and collapses whitespace.
func cleanHTML(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var removeNodes func(*html.Node)
	removeNodes = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			n.Parent.RemoveChild(n)
			return
		}
		if n.Type == html.CommentNode {
			n.Parent.RemoveChild(n)
			return
		}
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			removeNodes(c)
			c = next
		}
	}
	removeNodes(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return content
	}

	return strings.TrimSpace(strings.Join(strings.Fields(buf.String()), " "))
}
