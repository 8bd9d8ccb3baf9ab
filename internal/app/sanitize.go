package app

import (
	"strings"

	"golang.org/x/net/html"
)

var (
	// blockTags end a line in the plain-text rendering.
	blockTags = map[string]bool{
		"p": true, "div": true, "br": true, "li": true, "tr": true, "blockquote": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
	inlineTags = map[string]bool{
		"a": true, "b": true, "i": true, "u": true, "em": true, "strong": true,
		"span": true, "small": true, "sub": true, "sup": true, "code": true,
		"ul": true, "ol": true, "table": true, "thead": true, "tbody": true,
		"td": true, "th": true, "hr": true, "img": true,
	}
	// dropTags lose their content as well as the tag.
	dropTags = map[string]bool{"script": true, "style": true}

	markupAttrs = map[string]bool{
		"href": true, "class": true, "id": true, "style": true, "title": true,
		"src": true, "alt": true, "target": true, "rel": true, "lang": true, "dir": true,
	}
)

// plainText strips HTML markup from free text. Only known tags with ordinary
// attributes count as markup, so prose such as "a<b and c>d" is kept as
// written. Line breaks survive; block tags start new lines.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsRune(s, '<') || !hasMarkup(s) {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var (
		b    strings.Builder
		skip int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidyLines(b.String())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			raw := append([]byte(nil), z.Raw()...)
			name, ok := markupTag(z)
			if !ok {
				if skip == 0 {
					b.Write(raw)
				}
				continue
			}
			switch {
			case dropTags[name] && tt == html.StartTagToken:
				skip++
			case dropTags[name] && tt == html.EndTagToken:
				if skip > 0 {
					skip--
				}
			case name == "li" && tt == html.EndTagToken:
			case blockTags[name]:
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// markupTag reports the current tag name and whether it reads as real markup.
func markupTag(z *html.Tokenizer) (string, bool) {
	rawName, hasAttr := z.TagName()
	name := string(rawName)
	if !blockTags[name] && !inlineTags[name] && !dropTags[name] {
		return name, false
	}
	for hasAttr {
		var key []byte
		key, _, hasAttr = z.TagAttr()
		if !markupAttrs[string(key)] {
			return name, false
		}
	}
	return name, true
}

func hasMarkup(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			if _, ok := markupTag(z); ok {
				return true
			}
		}
	}
}

// tidyLines collapses spaces within each line and runs of blank lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
				blank = true
			}
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
