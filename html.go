package vdom

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
)

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured HTML minifier (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/html", minhtml.Minify)
	})
	return minifier
}

// minifyHTML removes unnecessary whitespace from HTML while preserving content
func minifyHTML(htmlContent string) string {
	minified, err := getMinifier().String("text/html", htmlContent)
	if err != nil {
		return htmlContent
	}
	return minified
}

// placeholderComment marks an empty dynamic slot in serialized output so a
// client can locate it when patching.
const placeholderComment = "vdom-placeholder"

// RenderHTML serializes the tree below the mount point to HTML. Placeholder
// nodes become marker comments, attributes are emitted in sorted order and
// listener registrations are emitted as data-on-* attributes so a thin
// client can wire events back up.
func (md *MemDom) RenderHTML() (string, error) {
	var b strings.Builder
	for _, c := range md.root.Children {
		n, err := htmlNode(c)
		if err != nil {
			return "", err
		}
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("render node %d: %w", c.ID, err)
		}
	}
	return b.String(), nil
}

// RenderHTMLMinified is RenderHTML followed by whitespace minification.
func (md *MemDom) RenderHTMLMinified() (string, error) {
	out, err := md.RenderHTML()
	if err != nil {
		return "", err
	}
	return minifyHTML(out), nil
}

func htmlNode(n *MemNode) (*html.Node, error) {
	switch {
	case n.IsText:
		return &html.Node{Type: html.TextNode, Data: n.Text}, nil
	case n.Placeholder:
		return &html.Node{Type: html.CommentNode, Data: placeholderComment}, nil
	}
	if n.Tag == "" {
		return nil, fmt.Errorf("element node %d has no tag", n.ID)
	}
	out := &html.Node{
		Type:      html.ElementNode,
		Data:      n.Tag,
		Namespace: n.Namespace,
	}
	names := make([]string, 0, len(n.Attrs)+len(n.Listeners))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Attr = append(out.Attr, html.Attribute{Key: name, Val: n.Attrs[name]})
	}
	if n.ID != 0 {
		out.Attr = append(out.Attr, html.Attribute{Key: "data-vdom-id", Val: fmt.Sprint(n.ID)})
	}
	events := make([]string, 0, len(n.Listeners))
	for name := range n.Listeners {
		events = append(events, name)
	}
	sort.Strings(events)
	for _, name := range events {
		out.Attr = append(out.Attr, html.Attribute{Key: "data-on-" + name, Val: "true"})
	}
	for _, c := range n.Children {
		child, err := htmlNode(c)
		if err != nil {
			return nil, err
		}
		out.AppendChild(child)
	}
	return out, nil
}
