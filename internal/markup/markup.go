// Package markup handles the Pango-style markup accepted in notification
// text.
//
// Callers hand in arbitrary strings; malformed input never propagates past
// this package. Body text goes through a fallback chain (rich markup,
// escaped markup, plain text, fixed error text) and titles are always
// escaped before rendering.
package markup

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrorText is the fixed placeholder used when every fallback tier fails.
const ErrorText = "invalid markup"

// Tier identifies which fallback tier produced the resolved text.
type Tier int

const (
	// TierRich means the body parsed as markup.
	TierRich Tier = iota
	// TierEscaped means raw markup characters were escaped instead.
	TierEscaped
	// TierPlain means the body was used verbatim after sanitizing.
	TierPlain
	// TierError means nothing usable survived and ErrorText was substituted.
	TierError
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// Escape replaces the markup-significant characters &, < and > with their
// entities. Titles are escaped with this before rendering so they can never
// be interpreted as markup.
func Escape(s string) string {
	return escaper.Replace(s)
}

// brVariants are the line-break spellings recognized even when the
// surrounding markup is broken.
var brVariants = []string{"<br/>", "<br />", "<br>", "</br>"}

func replaceBreaks(s string) string {
	for _, br := range brVariants {
		s = strings.ReplaceAll(s, br, "\n")
	}
	return s
}

// Resolve turns a notification body into renderable markup, degrading
// through the fallback chain instead of failing:
//
//  1. the body as-is, if it parses as markup;
//  2. the body with <br> variants turned into newlines and everything else
//     escaped, if the result is valid UTF-8;
//  3. the body stripped to valid UTF-8, verbatim;
//  4. ErrorText.
func Resolve(body string) (string, Tier) {
	if parses(body) {
		return body, TierRich
	}

	escaped := Escape(replaceBreaks(body))
	if utf8.ValidString(escaped) && parses(escaped) {
		return escaped, TierEscaped
	}

	if plain := strings.ToValidUTF8(body, ""); plain != "" {
		return Escape(plain), TierPlain
	}

	return ErrorText, TierError
}

// ToLines interprets resolved markup for a plain-text renderer: tags are
// stripped, entities decoded, and <br> variants become line breaks. It is
// the inverse boundary of Resolve and assumes its input already passed
// through it; anything unparseable comes back as a single line verbatim.
func ToLines(s string) []string {
	text, ok := strip(s)
	if !ok {
		text = s
	}
	return strings.Split(text, "\n")
}

// parses reports whether s is well-formed markup once <br> variants are
// normalized.
func parses(s string) bool {
	_, ok := strip(s)
	return ok
}

// strip parses s as an XML fragment, dropping tags and decoding entities.
func strip(s string) (string, bool) {
	if !utf8.ValidString(s) {
		return "", false
	}

	dec := xml.NewDecoder(strings.NewReader("<m>" + replaceBreaks(s) + "</m>"))
	dec.Strict = true

	var b strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", false
		}
		if cd, isText := tok.(xml.CharData); isText {
			b.Write(cd)
		}
	}
	return b.String(), true
}
