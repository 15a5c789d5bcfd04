package pipeline

import (
	"context"
	"fmt"

	"auto_spec_builder/generator"
	"auto_spec_builder/render"
)

type Format string

const (
	FormatDOCX Format = "doc"
	FormatHTML Format = "html"
)

// Artifact is a rendered export ready to be sent to the caller.
type Artifact struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Export renders the owner's specification in the requested format.
func (p *Pipeline) Export(ctx context.Context, ownerID, specID int64, format Format) (Artifact, error) {
	spec, err := p.store.Get(ctx, specID, ownerID)
	if err != nil {
		return Artifact{}, err
	}

	switch format {
	case FormatDOCX:
		data, err := render.DOCX(spec, p.files, p.logger)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{
			Data:        data,
			ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			FileName:    fmt.Sprintf("tz-%d.docx", spec.ID),
		}, nil
	case FormatHTML:
		data, err := render.HTML(spec, p.files, p.logger)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{
			Data:        data,
			ContentType: "text/html; charset=utf-8",
			FileName:    fmt.Sprintf("tz-%d.html", spec.ID),
		}, nil
	default:
		return Artifact{}, fmt.Errorf("%w: unknown export format %q", generator.ErrValidation, format)
	}
}
