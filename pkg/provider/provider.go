// Package provider defines the analysis types, provider names and result
// shapes shared by the NLP vendor adapters.
package provider

import (
	"context"
	"fmt"
)

// AnalysisType identifies one kind of NLP analysis.
type AnalysisType string

const (
	// Sentiment detects the overall tone of a text.
	Sentiment AnalysisType = "sentiment"

	// KeyPhrases extracts the main talking points.
	KeyPhrases AnalysisType = "keyPhrases"

	// Entities recognizes named entities (people, places, organizations).
	Entities AnalysisType = "entities"

	// Language detects the dominant language.
	Language AnalysisType = "language"

	// Classification assigns content categories.
	Classification AnalysisType = "classification"
)

// DefaultAnalysisType is used when a request omits the analysis type.
const DefaultAnalysisType = Sentiment

var analysisLabels = map[AnalysisType]string{
	Sentiment:      "sentiment",
	KeyPhrases:     "key phrases",
	Entities:       "entities",
	Language:       "language",
	Classification: "classification",
}

// AnalysisTypes returns every supported analysis type in wire order.
func AnalysisTypes() []AnalysisType {
	return []AnalysisType{Sentiment, KeyPhrases, Entities, Language, Classification}
}

// ParseAnalysisType maps a wire name to an AnalysisType.
// An empty string yields DefaultAnalysisType.
func ParseAnalysisType(s string) (AnalysisType, bool) {
	if s == "" {
		return DefaultAnalysisType, true
	}
	t := AnalysisType(s)
	return t, t.Valid()
}

// Valid reports whether t is one of the supported analysis types.
func (t AnalysisType) Valid() bool {
	_, ok := analysisLabels[t]
	return ok
}

// Label returns the human readable form used in messages.
func (t AnalysisType) Label() string {
	if l, ok := analysisLabels[t]; ok {
		return l
	}
	return string(t)
}

// Name identifies an NLP vendor.
type Name string

const (
	AWS    Name = "aws"
	Azure  Name = "azure"
	Google Name = "google"
)

// Names lists every provider a merged result must contain.
func Names() []Name {
	return []Name{AWS, Azure, Google}
}

// DisplayName returns the vendor name as shown to users.
func (n Name) DisplayName() string {
	switch n {
	case AWS:
		return "AWS"
	case Azure:
		return "Azure"
	case Google:
		return "Google"
	default:
		return string(n)
	}
}

// FailureMessage is the stable message carried by an error marker.
// Vendor error details are logged, never returned to callers.
func FailureMessage(t AnalysisType, n Name) string {
	return fmt.Sprintf("Failed to get %s from %s", t.Label(), n.DisplayName())
}

// Analyzer is implemented by every vendor adapter. Operations never return
// a Go error: failures are folded into an error marker Result.
type Analyzer interface {
	Name() Name
	AnalyzeSentiment(ctx context.Context, text string) Result
	ExtractKeyPhrases(ctx context.Context, text string) Result
	RecognizeEntities(ctx context.Context, text string) Result
	DetectLanguage(ctx context.Context, text string) Result
	Classify(ctx context.Context, text string) Result
}

// Operation is a single analyzer call bound to an analysis type.
type Operation func(ctx context.Context, text string) Result

// OperationFor selects the analyzer method matching t.
func OperationFor(a Analyzer, t AnalysisType) (Operation, bool) {
	switch t {
	case Sentiment:
		return a.AnalyzeSentiment, true
	case KeyPhrases:
		return a.ExtractKeyPhrases, true
	case Entities:
		return a.RecognizeEntities, true
	case Language:
		return a.DetectLanguage, true
	case Classification:
		return a.Classify, true
	default:
		return nil, false
	}
}
