package checker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// inspect fetches a listed page and reports problems that make it a poor
// sitemap entry.
func (c *Checker) inspect(ctx context.Context, loc string) []Issue {
	resp, err := c.get(ctx, loc)
	if err != nil {
		return []Issue{{Loc: loc, Kind: KindFetch, Detail: err.Error()}}
	}
	defer resp.Body.Close()

	var issues []Issue
	if resp.StatusCode >= http.StatusBadRequest {
		return append(issues, Issue{Loc: loc, Kind: KindStatus, Detail: fmt.Sprintf("status %d", resp.StatusCode)})
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("X-Robots-Tag")), "noindex") {
		issues = append(issues, Issue{Loc: loc, Kind: KindNoindex, Detail: "X-Robots-Tag noindex"})
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return append(issues, Issue{Loc: loc, Kind: KindFetch, Detail: err.Error()})
	}

	hints := pageHints(doc)
	if strings.Contains(strings.ToLower(hints.robots), "noindex") {
		issues = append(issues, Issue{Loc: loc, Kind: KindNoindex, Detail: "robots meta noindex"})
	}
	if hints.canonical != "" && hints.canonical != loc {
		issues = append(issues, Issue{Loc: loc, Kind: KindCanonical, Detail: "canonical is " + hints.canonical})
	}
	return issues
}

type hints struct {
	robots    string
	canonical string
}

func pageHints(n *html.Node) hints {
	var h hints
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if strings.EqualFold(getAttr(n, "name"), "robots") {
					h.robots = getAttr(n, "content")
				}
			case "link":
				if strings.EqualFold(getAttr(n, "rel"), "canonical") {
					h.canonical = getAttr(n, "href")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return h
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
