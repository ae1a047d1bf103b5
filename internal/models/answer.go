package models

// Finding is one fact extracted from a successfully visited page,
// with provenance back to the page and the query that surfaced it.
type Finding struct {
	Content     string `json:"content"`
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title,omitempty"`
	Query       string `json:"query,omitempty"`
}

// AggregatedAnswer is the final structured output of one request.
// It is produced exactly once and never mutated afterwards.
type AggregatedAnswer struct {
	Format               ResultFormat `json:"format"`
	Title                string       `json:"title,omitempty"`
	Content              string       `json:"content"`
	Sources              []string     `json:"sources,omitempty"`
	QueriesExecuted      []string     `json:"queries_executed,omitempty"`
	VisitedCount         int          `json:"visited_count"`
	InsufficientEvidence bool         `json:"insufficient_evidence,omitempty"`
	TimedOut             bool         `json:"timed_out,omitempty"`
}
