package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"auto_spec_builder/store"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders spec with the same numbering and summary as DOCX. Images
// are inlined as data URIs; unreadable ones are skipped.
func Markdown(spec store.Specification, src AttachmentSource, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(title(spec)))
	fmt.Fprintf(&b, "*%s*\n\n", dateLine(spec.CreatedAt))

	for si, sec := range spec.Sections {
		fmt.Fprintf(&b, "## %d. %s\n\n", si+1, escapeMarkdown(sec.Title))
		for ii, it := range sec.Items {
			fmt.Fprintf(&b, "**%d.%d** %s", si+1, ii+1, escapeMarkdown(it.Content))
			if suffix := estimateSuffix(it); suffix != "" {
				fmt.Fprintf(&b, " **%s**", escapeMarkdown(strings.TrimSpace(suffix)))
			}
			b.WriteString("\n\n")

			for _, a := range it.Attachments {
				if !isInlineImage(a) || src == nil {
					continue
				}
				data, err := src.ReadAttachment(a.Locator)
				if err != nil {
					logger.Warn("attachment skipped", zap.Int64("attachment_id", a.ID), zap.Error(err))
					continue
				}
				fmt.Fprintf(&b, "![%s](data:%s;base64,%s)\n\n",
					escapeMarkdown(a.FileName), strings.ToLower(a.MediaType), base64.StdEncoding.EncodeToString(data))
			}
		}
	}

	b.WriteString("| Общее время: | " + FormatTotal(TotalMinutes(spec)) + " |\n")
	b.WriteString("|---|---|\n")
	return b.String()
}

// HTML converts Markdown(spec) into a standalone page.
func HTML(spec store.Specification, src AttachmentSource, logger *zap.Logger) ([]byte, error) {
	body, err := mdToHTML(Markdown(spec, src, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"ru\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title(spec)))
	buf.WriteString(pageStyle)
	buf.WriteString("</head>\n<body>\n")
	buf.WriteString(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func mdToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"#", `\#`, "|", `\|`, "<", `\<`, ">", `\>`, "!", `\!`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

const pageStyle = `<style>
body { font-family: Arial, sans-serif; max-width: 800px; margin: 2em auto; color: #222; }
h1 { text-align: center; }
h2 { margin-top: 1.5em; }
img { max-width: 100%; margin: 0.5em 0 1em 1.5em; }
strong { color: #0066cc; }
table { margin-top: 2em; border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 0.4em 0.8em; }
</style>
`
