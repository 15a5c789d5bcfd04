package generator

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// MockLLM 一个简单的占位实现，不调用外部模型：源文本的每个句子成为一个未估时的条目。
type MockLLM struct{}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	source := prompt.User
	if i := strings.Index(source, sourceOpen); i >= 0 {
		source = source[i+len(sourceOpen):]
	}
	source = strings.TrimSuffix(strings.TrimSpace(source), sourceClose)

	section := Section{Title: "Основные требования"}
	for _, line := range sentenceSplit.Split(source, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		section.Items = append(section.Items, Item{Content: line})
	}
	if len(section.Items) == 0 {
		section.Items = []Item{{Content: strings.TrimSpace(source)}}
	}

	data, err := json.MarshalIndent(Tree{Title: "Черновик ТЗ", Sections: []Section{section}}, "", "  ")
	if err != nil {
		return "", err
	}
	// Wrapped the way real models tend to answer.
	return "```json\n" + string(data) + "\n```", nil
}
