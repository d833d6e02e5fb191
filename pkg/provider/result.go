package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoPayload is returned when marshaling a zero Result.
var ErrNoPayload = errors.New("result has neither payload nor error")

// Payload is the closed set of normalized success shapes.
type Payload interface {
	isPayload()
}

// Result holds exactly one of a payload or an error marker.
type Result struct {
	payload Payload
	failure string
}

// Success wraps a normalized payload.
func Success(p Payload) Result {
	return Result{payload: p}
}

// Failure builds an error marker carrying msg.
func Failure(msg string) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{failure: msg}
}

// Payload returns the success payload, if any.
func (r Result) Payload() (Payload, bool) {
	return r.payload, r.payload != nil
}

// IsError reports whether r is an error marker.
func (r Result) IsError() bool {
	return r.failure != ""
}

// Message returns the error marker message, or "" for a success.
func (r Result) Message() string {
	return r.failure
}

// MarshalJSON encodes a success as the payload itself and an error marker
// as {"error": "<message>"}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.failure != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.failure})
	}
	if r.payload == nil {
		return nil, ErrNoPayload
	}
	return json.Marshal(r.payload)
}

// Merged maps every provider to its result for one analysis.
type Merged map[Name]Result

// Encode returns the JSON form stored in the result cache.
func (m Merged) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// LabeledSentiment is the label plus per-class confidence form.
type LabeledSentiment struct {
	Sentiment string             `json:"sentiment"`
	Scores    map[string]float64 `json:"scores"`
}

// Polarity is a signed score with an unsigned magnitude.
type Polarity struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

// PolarSentiment is the score plus magnitude form.
type PolarSentiment struct {
	Sentiment Polarity `json:"sentiment"`
}

// KeyPhraseList is an ordered list of phrases.
type KeyPhraseList []string

// Entity is a recognized named entity. Offset and Length count Unicode
// code points.
type Entity struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Offset     int     `json:"offset"`
	Length     int     `json:"length"`
}

// EntityList is the entities payload.
type EntityList []Entity

// DetectedLanguage is a single language detection.
type DetectedLanguage struct {
	Language   string  `json:"language"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// LanguageCandidates is a ranked list of detections.
type LanguageCandidates []DetectedLanguage

// Category is one content classification.
type Category struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// CategoryList is the classification payload.
type CategoryList []Category

func (LabeledSentiment) isPayload()   {}
func (PolarSentiment) isPayload()     {}
func (KeyPhraseList) isPayload()      {}
func (EntityList) isPayload()         {}
func (DetectedLanguage) isPayload()   {}
func (LanguageCandidates) isPayload() {}
func (CategoryList) isPayload()       {}

// Unavailable returns an Analyzer that answers every call with an error
// marker. It stands in for a vendor whose adapter could not be configured.
func Unavailable(name Name) Analyzer {
	return unavailable{name: name}
}

type unavailable struct {
	name Name
}

func (u unavailable) Name() Name { return u.name }

func (u unavailable) AnalyzeSentiment(context.Context, string) Result {
	return Failure(FailureMessage(Sentiment, u.name))
}

func (u unavailable) ExtractKeyPhrases(context.Context, string) Result {
	return Failure(FailureMessage(KeyPhrases, u.name))
}

func (u unavailable) RecognizeEntities(context.Context, string) Result {
	return Failure(FailureMessage(Entities, u.name))
}

func (u unavailable) DetectLanguage(context.Context, string) Result {
	return Failure(FailureMessage(Language, u.name))
}

func (u unavailable) Classify(context.Context, string) Result {
	return Failure(FailureMessage(Classification, u.name))
}
