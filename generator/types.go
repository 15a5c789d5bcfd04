package generator

// Tree is the canonical shape the pipeline accepts from a generation backend
// after normalization, and from callers that author specifications by hand.
type Tree struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is a named, ordered group of items.
type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Item is a single unit of work. TimeEstimate is in minutes; nil means "not estimated".
type Item struct {
	Content      string `json:"content"`
	TimeEstimate *int   `json:"timeEstimate"`
}

// Request 是 Agent 生成 Tree 所需的输入。
type Request struct {
	Text string
	// Instructions replaces DefaultInstructions when non-blank.
	Instructions string
	// DomainID selects an entry of Domains; unknown ids add no context.
	DomainID string
}

// Minutes returns a pointer to m, for building trees in code.
func Minutes(m int) *int {
	return &m
}
