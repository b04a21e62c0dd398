package db

type Session struct {
	ID               string
	UserID           string
	ExternalID       string
	Title            string
	ProjectPath      string
	ProjectName      string
	Model            string
	Provider         string
	Source           string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Cost             float64
	DurationMs       int64
	IsPublic         int64
	PublicSlug       string
	SearchableText   string
	MessageCount     int64
	EvalReady        int64
	EvalTags         string
	EvalNotes        string
	CreatedAt        int64
	UpdatedAt        int64
}

type Message struct {
	ID               string
	SessionID        string
	ExternalID       string
	Role             string
	TextContent      string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	DurationMs       int64
	CreatedAt        int64
}

type Part struct {
	ID        string
	MessageID string
	Type      string
	Content   string
	Position  int64
}

type SessionEmbedding struct {
	ID          string
	SessionID   string
	UserID      string
	Embedding   []byte
	ContentHash string
	CreatedAt   int64
}
