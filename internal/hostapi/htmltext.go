package hostapi

import (
	"encoding/json"
	"strings"

	"github.com/gantrydata/gantry/internal/core"
	gohtml "golang.org/x/net/html"
)

// htmlJS exposes the guest html module for scraping-style inputs.
const htmlJS = `
__registerBuiltin('html', function() {
	return {
		text: function(html) { return __html_text(String(html)); },
		links: function(html) { return JSON.parse(__html_links(String(html))); },
		attrs: function(html, tag, attr) {
			return JSON.parse(__html_attrs(String(html), String(tag), String(attr)));
		}
	};
});
`

// skipContentTag reports tags whose text content is never document text.
func skipContentTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// extractText returns the concatenated text content of an HTML document,
// collapsing runs of whitespace to single spaces.
func extractText(htmlStr string) string {
	z := gohtml.NewTokenizer(strings.NewReader(htmlStr))
	var parts []string
	skipDepth := 0

	for {
		switch z.Next() {
		case gohtml.ErrorToken:
			return strings.Join(parts, " ")
		case gohtml.StartTagToken:
			name, _ := z.TagName()
			if skipContentTag(string(name)) {
				skipDepth++
			}
		case gohtml.EndTagToken:
			name, _ := z.TagName()
			if skipContentTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case gohtml.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text != "" {
				parts = append(parts, strings.Join(strings.Fields(text), " "))
			}
		}
	}
}

// extractAttrs returns the values of one attribute across all elements with
// the given tag name, in document order.
func extractAttrs(htmlStr, tag, attr string) []string {
	z := gohtml.NewTokenizer(strings.NewReader(htmlStr))
	values := []string{}

	for {
		tt := z.Next()
		if tt == gohtml.ErrorToken {
			return values
		}
		if tt != gohtml.StartTagToken && tt != gohtml.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != tag || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == attr {
				values = append(values, string(val))
			}
			if !more {
				break
			}
		}
	}
}

// setupHTML registers the tokenizer-backed extraction helpers behind
// require('html').
func setupHTML(rt core.ScriptRuntime, _ *Options) error {
	if err := rt.RegisterFunc("__html_text", func(htmlStr string) string {
		return extractText(htmlStr)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__html_links", func(htmlStr string) (string, error) {
		data, err := json.Marshal(extractAttrs(htmlStr, "a", "href"))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__html_attrs", func(htmlStr, tag, attr string) (string, error) {
		data, err := json.Marshal(extractAttrs(htmlStr, tag, attr))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}); err != nil {
		return err
	}

	return rt.Eval(htmlJS)
}
