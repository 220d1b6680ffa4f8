package domain

import (
	"time"
)

// LineItem is one product request extracted from a customer message.
type LineItem struct {
	Product  string   `json:"product"`
	Quantity Quantity `json:"quantity"`
	Segment  string   `json:"segment"`
	Grammar  string   `json:"grammar"`
	Note     string   `json:"note,omitempty"`
}

// ResolutionKind tags the outcome of resolving a product phrase.
type ResolutionKind int

const (
	ResolutionNotFound ResolutionKind = iota
	ResolutionExact
	ResolutionAmbiguous
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionExact:
		return "exact"
	case ResolutionAmbiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// MatchStage names the resolver stage that produced a resolution.
type MatchStage string

const (
	StageNone     MatchStage = "none"
	StageExact    MatchStage = "exact"
	StageSynonym  MatchStage = "synonym"
	StageKeyword  MatchStage = "keyword"
	StageFuzzy    MatchStage = "fuzzy"
	StageSemantic MatchStage = "semantic"
)

// Resolution is the tagged result of product resolution. Only the fields
// belonging to Kind are meaningful:
//   - Exact: Product
//   - Ambiguous: Candidates (every tied canonical key)
//   - NotFound: Suggestions (at most a handful, best first, possibly empty)
type Resolution struct {
	Kind        ResolutionKind `json:"kind"`
	Product     string         `json:"product,omitempty"`
	Candidates  []string       `json:"candidates,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Stage       MatchStage     `json:"stage"`
	Score       float64        `json:"score,omitempty"`
}

// ExactMatch builds an Exact resolution.
func ExactMatch(product string, stage MatchStage, score float64) Resolution {
	return Resolution{Kind: ResolutionExact, Product: product, Stage: stage, Score: score}
}

// AmbiguousMatch builds an Ambiguous resolution.
func AmbiguousMatch(candidates []string, stage MatchStage) Resolution {
	return Resolution{Kind: ResolutionAmbiguous, Candidates: candidates, Stage: stage}
}

// NoMatch builds a NotFound resolution.
func NoMatch(suggestions []string) Resolution {
	return Resolution{Kind: ResolutionNotFound, Suggestions: suggestions, Stage: StageNone}
}

// DiagnosticKind classifies a segment that produced no line item.
type DiagnosticKind string

const (
	DiagnosticAmbiguous       DiagnosticKind = "ambiguous"
	DiagnosticNotFound        DiagnosticKind = "not_found"
	DiagnosticUnparsed        DiagnosticKind = "unparsed"
	DiagnosticInvalidQuantity DiagnosticKind = "invalid_quantity"
)

// Diagnostic explains why a message segment yielded no line item.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Segment    string         `json:"segment"`
	Phrase     string         `json:"phrase,omitempty"`
	Candidates []string       `json:"candidates,omitempty"`
}

// ExtractionResult is everything extracted from one message.
type ExtractionResult struct {
	Items       []LineItem   `json:"items"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Empty reports whether the message produced neither items nor diagnostics.
func (r ExtractionResult) Empty() bool {
	return len(r.Items) == 0 && len(r.Diagnostics) == 0
}

// Order is a confirmed, priced order ready to be archived.
type Order struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CustomerName string    `json:"customer_name"`
	PickupAt     time.Time `json:"pickup_at"`
	Receipt      Receipt   `json:"receipt"`
	CreatedAt    time.Time `json:"created_at"`
}
