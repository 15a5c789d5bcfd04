package render

import (
	"fmt"
	"strings"
	"time"

	"auto_spec_builder/store"
)

// DefaultTitle heads documents whose specification has no title.
const DefaultTitle = "Техническое задание"

// AttachmentSource reads attachment bytes by locator at render time.
type AttachmentSource interface {
	ReadAttachment(locator string) ([]byte, error)
}

// FormatTotal renders a minute count as "H ч M мин" from one hour up,
// otherwise as "M мин".
func FormatTotal(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%d ч %d мин", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%d мин", minutes)
}

// TotalMinutes sums the estimates that are present; absent ones add nothing.
func TotalMinutes(spec store.Specification) int {
	total := 0
	for _, sec := range spec.Sections {
		for _, it := range sec.Items {
			if it.TimeEstimate != nil {
				total += *it.TimeEstimate
			}
		}
	}
	return total
}

func title(spec store.Specification) string {
	if t := strings.TrimSpace(spec.Title); t != "" {
		return t
	}
	return DefaultTitle
}

func dateLine(created time.Time) string {
	return "Дата: " + created.Format("02.01.2006")
}

func estimateSuffix(it store.Item) string {
	if it.TimeEstimate == nil {
		return ""
	}
	return fmt.Sprintf(" [%d мин]", *it.TimeEstimate)
}

// isInlineImage reports whether the attachment can be embedded in a document body.
func isInlineImage(a store.Attachment) bool {
	switch strings.ToLower(a.MediaType) {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp":
		return true
	}
	return false
}
