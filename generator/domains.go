package generator

// Domain is one entry of the static domain-context catalog. Description may be
// nil, in which case selecting the domain adds nothing to the prompt.
type Domain struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"-"`
}

func describe(s string) *string { return &s }

// Domains lists the platforms a customer can target, in display order.
var Domains = []Domain{
	{
		ID:          "bitrix24",
		Name:        "Битрикс24",
		Description: describe("Облачная CRM-система Битрикс24. Разработка через REST API, бизнес-процессы, CRM-формы, роботы, вебхуки. Есть маркетплейс приложений."),
	},
	{
		ID:          "1c-bitrix",
		Name:        "1С-Битрикс",
		Description: describe("CMS 1С-Битрикс для сайтов и интернет-магазинов. Разработка на PHP, компонентная архитектура, инфоблоки, модули, API. Нужен сервер."),
	},
	{
		ID:          "amocrm",
		Name:        "amoCRM",
		Description: describe("Облачная CRM amoCRM. Интеграция через REST API и виджеты. Фокус на воронке продаж, сделках, контактах."),
	},
	{
		ID:          "wordpress",
		Name:        "WordPress",
		Description: describe("CMS WordPress. Разработка плагинов и тем на PHP, REST API, хуки и фильтры, WooCommerce для e-commerce."),
	},
	{
		ID:          "custom",
		Name:        "Самописное решение",
		Description: describe("Разработка с нуля. Свободный выбор стека, архитектуры, БД. Полный контроль, но больше времени на реализацию."),
	},
	{
		ID:   "none",
		Name: "Не указана",
	},
}

// LookupDomain finds a catalog entry by id.
func LookupDomain(id string) (Domain, bool) {
	for _, d := range Domains {
		if d.ID == id {
			return d, true
		}
	}
	return Domain{}, false
}
