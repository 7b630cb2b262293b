// Package clientinfo derives a human readable label for an IndieAuth client
// from the page its client_id URL points at.
package clientinfo

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"golang.org/x/net/html"
)

// Name returns a display name for the client identified by clientID.
// It fetches the client_id page and uses its <title>. Registration must
// never fail on a slow or broken client page, so any error falls back to
// a label derived from the URL itself.
func Name(ctx context.Context, clientID string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var body string
	err := requests.URL(clientID).
		CheckStatus(http.StatusOK).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return fallback(clientID)
	}
	if title := pageTitle(body); title != "" {
		return title
	}
	return fallback(clientID)
}

func fallback(clientID string) string {
	return "IndieAuth for " + clientID
}

// pageTitle returns the text of the first <title> element in doc, or "".
func pageTitle(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return title
}
