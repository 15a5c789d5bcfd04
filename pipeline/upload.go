package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"auto_spec_builder/generator"
	"auto_spec_builder/store"

	"github.com/fumiama/go-docx"
	"go.uber.org/zap"
)

const (
	// MaxAttachmentSize bounds a single attachment upload.
	MaxAttachmentSize = 5 << 20
	// MaxDocumentSize bounds a source document upload.
	MaxDocumentSize = 10 << 20
)

var attachmentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// AddAttachment stores the upload and links it to the item. The file is
// removed again if the item is not the owner's.
func (p *Pipeline) AddAttachment(ctx context.Context, ownerID, itemID int64, name string, r io.Reader) (store.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(name))
	mediaType, ok := attachmentTypes[ext]
	if !ok {
		return store.Attachment{}, fmt.Errorf("%w: file type %q is not allowed", generator.ErrValidation, ext)
	}

	stored, err := p.files.Save(name, r)
	if err != nil {
		return store.Attachment{}, err
	}
	if strings.HasPrefix(mediaType, "image/") && stored.MediaType != mediaType {
		p.files.RemoveAll([]string{stored.Locator})
		return store.Attachment{}, fmt.Errorf("%w: %s content is not %s", generator.ErrValidation, name, mediaType)
	}

	a, err := p.store.AddAttachment(ctx, ownerID, store.Attachment{
		ItemID:    itemID,
		FileName:  filepath.Base(name),
		Locator:   stored.Locator,
		MediaType: mediaType,
		Size:      stored.Size,
	})
	if err != nil {
		p.files.RemoveAll([]string{stored.Locator})
		return store.Attachment{}, err
	}
	p.logger.Info("attachment added", zap.Int64("item_id", itemID), zap.Int64("attachment_id", a.ID))
	return a, nil
}

// DeleteAttachment removes the row and then the file.
func (p *Pipeline) DeleteAttachment(ctx context.Context, ownerID, attachmentID int64) error {
	a, err := p.store.DeleteAttachment(ctx, ownerID, attachmentID)
	if err != nil {
		return err
	}
	p.files.RemoveAll([]string{a.Locator})
	return nil
}

// ExtractText pulls plain text out of an uploaded .txt or .docx document.
func ExtractText(name string, r io.ReaderAt, size int64) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not UTF-8 text", generator.ErrValidation, name)
		}
		return strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")), nil
	case ".docx":
		doc, err := docx.Parse(r, size)
		if err != nil {
			return "", fmt.Errorf("%w: cannot read %s: %v", generator.ErrValidation, name, err)
		}
		return docxText(doc), nil
	default:
		return "", fmt.Errorf("%w: supported formats are .txt and .docx", generator.ErrValidation)
	}
}

func docxText(doc *docx.Docx) string {
	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch o := item.(type) {
		case *docx.Paragraph:
			lines = append(lines, paragraphText(o))
		case *docx.Table:
			for _, row := range o.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					var parts []string
					for _, cp := range cell.Paragraphs {
						parts = append(parts, paragraphText(cp))
					}
					cells = append(cells, strings.Join(parts, " "))
				}
				lines = append(lines, strings.Join(cells, "\t"))
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func paragraphText(p *docx.Paragraph) string {
	var sb strings.Builder
	for _, c := range p.Children {
		run, ok := c.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch x := rc.(type) {
			case *docx.Text:
				sb.WriteString(x.Text)
			case *docx.Tab:
				sb.WriteByte('\t')
			}
		}
	}
	return sb.String()
}
