package parse

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var newlines = strings.NewReplacer("\r", " ", "\n", " ")

// TextConverter turns residual inline markup into plain text.
type TextConverter interface {
	PlainText(markup string) (string, error)
}

// HTMLText is the default converter: text nodes with entities decoded,
// <br> as a line break, other whitespace collapsed.
type HTMLText struct {
	// MaxBuf bounds a single token; zero means unlimited.
	MaxBuf int
}

func (c HTMLText) PlainText(markup string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	if c.MaxBuf > 0 {
		z.SetMaxBuf(c.MaxBuf)
	}

	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return tidyLines(b.String()), nil
			}
			return "", z.Err()
		case html.TextToken:
			// source line breaks are plain whitespace, only <br> breaks a line
			b.WriteString(newlines.Replace(string(z.Text())))
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
