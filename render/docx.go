package render

import (
	"bytes"
	"fmt"

	"auto_spec_builder/store"

	"github.com/fumiama/go-docx"
	"go.uber.org/zap"
)

// Sizes are in half-points.
const (
	titleSize   = "32"
	dateSize    = "20"
	sectionSize = "26"
	itemSize    = "22"
	totalSize   = "24"
)

// DOCX renders spec as a Word document. Sections and items are numbered by
// their 1-based order. Image attachments are embedded after their item; an
// attachment that cannot be read is skipped and logged, the rest still renders.
func DOCX(spec store.Specification, src AttachmentSource, logger *zap.Logger) ([]byte, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc := docx.New().WithDefaultTheme().WithA4Page()

	doc.AddParagraph().Justification("center").
		AddText(title(spec)).Bold().Size(titleSize)
	doc.AddParagraph().Justification("end").
		AddText(dateLine(spec.CreatedAt)).Size(dateSize).Color("666666")

	for si, sec := range spec.Sections {
		doc.AddParagraph().
			AddText(fmt.Sprintf("%d. %s", si+1, sec.Title)).Bold().Size(sectionSize)

		for ii, it := range sec.Items {
			p := doc.AddParagraph()
			addText(p, fmt.Sprintf("%d.%d ", si+1, ii+1)).Bold().Size(itemSize)
			addText(p, it.Content).Size(itemSize)
			if suffix := estimateSuffix(it); suffix != "" {
				addText(p, suffix).Bold().Size(itemSize).Color("0066CC")
			}

			for _, a := range it.Attachments {
				if !isInlineImage(a) {
					continue
				}
				embedImage(doc, a, src, logger)
			}
		}
	}

	doc.AddParagraph()
	tbl := doc.AddTable(1, 2, 0, nil)
	cells := tbl.TableRows[0].TableCells
	cells[0].AddParagraph().AddText("Общее время:").Bold().Size(totalSize)
	cells[1].AddParagraph().AddText(FormatTotal(TotalMinutes(spec))).Bold().Size(totalSize)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write docx: %w", err)
	}
	return buf.Bytes(), nil
}

// addText keeps leading and trailing spaces, which Word drops otherwise.
func addText(p *docx.Paragraph, text string) *docx.Run {
	run := p.AddText(text)
	for _, c := range run.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	return run
}

func embedImage(doc *docx.Docx, a store.Attachment, src AttachmentSource, logger *zap.Logger) {
	if src == nil {
		return
	}
	data, err := src.ReadAttachment(a.Locator)
	if err != nil {
		logger.Warn("attachment skipped", zap.Int64("attachment_id", a.ID), zap.Error(err))
		return
	}
	if _, err := doc.AddParagraph().AddInlineDrawing(data); err != nil {
		logger.Warn("attachment not embeddable", zap.Int64("attachment_id", a.ID), zap.Error(err))
	}
}
