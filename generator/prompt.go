package generator

import (
	"fmt"
	"strings"
)

// Prompt is the request sent to a backend. System holds the instruction block, the optional
// domain paragraph and the output contract; User holds the delimited source text.
type Prompt struct {
	System string
	User   string
}

// String joins both parts in their fixed order for single-prompt backends.
func (p Prompt) String() string {
	return p.System + "\n\n" + p.User
}

// DefaultInstructions is the built-in role and rules block. Owner prompts and
// per-request instructions replace it verbatim.
const DefaultInstructions = `Ты — опытный системный аналитик. Твоя задача — превратить сырой текст (запись речи заказчика) в структурированное техническое задание на разработку.

ПРАВИЛА:
- Разбей требования заказчика на логические разделы (например: "Каталог товаров", "Корзина", "Оплата", "Личный кабинет")
- В каждом разделе выдели конкретные задачи для разработчика
- Каждой задаче дай оценку времени в минутах (реалистичную для junior/middle разработчика)
- Придумай короткое название ТЗ, отражающее суть проекта
- НЕ описывай процесс анализа, описывай РЕЗУЛЬТАТ — что нужно разработать
- Отвечай ТОЛЬКО на русском языке`

// OutputContract is appended to every prompt and cannot be overridden.
const OutputContract = `Верни ТОЛЬКО валидный JSON, без markdown-обёртки, без пояснений до или после, строго в формате:
{
  "title": "Название ТЗ",
  "sections": [
    {
      "title": "Название раздела",
      "items": [
        {
          "content": "Описание задачи для разработчика",
          "timeEstimate": 60
        }
      ]
    }
  ]
}`

const (
	sourceOpen  = "<<<ТЕКСТ ЗАКАЗЧИКА"
	sourceClose = "ТЕКСТ ЗАКАЗЧИКА>>>"
)

// Compose 生成发送给模型的提示词。
func Compose(req Request) (Prompt, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Prompt{}, fmt.Errorf("%w: source text is empty", ErrValidation)
	}

	var sb strings.Builder
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		instructions = DefaultInstructions
	}
	sb.WriteString(instructions)
	sb.WriteString("\n\n")

	if para := domainParagraph(req.DomainID); para != "" {
		sb.WriteString(para)
		sb.WriteString("\n\n")
	}

	sb.WriteString(OutputContract)

	user := fmt.Sprintf("Текст от заказчика:\n%s\n%s\n%s", sourceOpen, text, sourceClose)

	return Prompt{
		System: sb.String(),
		User:   user,
	}, nil
}

func domainParagraph(id string) string {
	if id == "" {
		return ""
	}
	d, ok := LookupDomain(id)
	if !ok || d.Description == nil || strings.TrimSpace(*d.Description) == "" {
		return ""
	}
	return fmt.Sprintf("КОНТЕКСТ ПЛАТФОРМЫ: проект реализуется на платформе %s. %s\nИспользуй терминологию этой платформы и учитывай её особенности при разбиении на задачи и оценке времени.",
		d.Name, *d.Description)
}
