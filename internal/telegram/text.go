package telegram

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SplitMessage cuts text into chunks of at most maxLen runes. A chunk ends at
// the last newline in its second half when there is one, otherwise at the
// last space, otherwise exactly at maxLen.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > maxLen {
		chunk := string(runes[:maxLen])
		splitAt := maxLen

		if i := strings.LastIndex(chunk, "\n"); i >= 0 && utf8.RuneCountInString(chunk[:i]) > maxLen/2 {
			splitAt = utf8.RuneCountInString(chunk[:i]) + 1
		} else if i := strings.LastIndex(chunk, " "); i >= 0 && utf8.RuneCountInString(chunk[:i]) > maxLen/2 {
			splitAt = utf8.RuneCountInString(chunk[:i]) + 1
		}

		parts = append(parts, string(runes[:splitAt]))
		runes = runes[splitAt:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// Truncate cuts text to maxLen runes, ending it with "..." when cut.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// FixMarkdown closes unbalanced code fences and inline code spans so that
// Telegram's Markdown parser accepts the text.
func FixMarkdown(text string) string {
	if strings.Count(text, "```")%2 != 0 {
		text += "\n```"
	}

	var b strings.Builder
	inBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i] == '`' && runes[i+1] == '`' && runes[i+2] == '`' {
			if inlineOpen {
				b.WriteRune('`')
				inlineOpen = false
			}
			inBlock = !inBlock
			b.WriteString("```")
			i += 2
			continue
		}
		if !inBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}
		b.WriteRune(runes[i])
	}
	if inlineOpen {
		b.WriteRune('`')
	}
	return b.String()
}

// htmlTag matches formatting tags only. Anything else in angle brackets is
// ordinary text such as List<Integer> or a<b.
var htmlTag = regexp.MustCompile(`(?i)<(?:/?(?:p|br|div|b|i|strong|em|a|ul|ol|li|pre|code|h[1-6]|blockquote|script|style)\s*/?|a\s+href=(?:"[^"<>]*"|'[^'<>]*')\s*)>`)

var (
	angleBrackets  = strings.NewReplacer("<", "&lt;", ">", "&gt;")
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
)

const blockSelector = "p, div, li, h1, h2, h3, h4, h5, h6, pre, blockquote"

// PlainText renders an HTML reply as plain text. Text without markup is
// returned unchanged.
func PlainText(text string) string {
	tags := htmlTag.FindAllStringIndex(text, -1)
	if len(tags) == 0 {
		return text
	}

	var src strings.Builder
	last := 0
	for _, loc := range tags {
		src.WriteString(angleBrackets.Replace(text[last:loc[0]]))
		src.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	src.WriteString(angleBrackets.Replace(text[last:]))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src.String()))
	if err != nil {
		return text
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, sel *goquery.Selection) {
		sel.PrependHtml("• ")
	})
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href != "" && strings.TrimSpace(sel.Text()) != href {
			sel.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})

	out := doc.Text()
	out = trailingSpaces.ReplaceAllString(out, "\n")
	out = blankLineRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
