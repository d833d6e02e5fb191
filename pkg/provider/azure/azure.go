// Package azure adapts the Azure AI Language analyze-text REST API to
// provider.Analyzer.
package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/insight-engine/pkg/client"
	"github.com/Sternrassler/insight-engine/pkg/provider"
)

const (
	analyzePath = "/language/:analyze-text"

	// DefaultAPIVersion is the analyze-text API version sent when none is configured.
	DefaultAPIVersion = "2023-04-01"

	keyHeader = "Ocp-Apim-Subscription-Key"
)

// Task kinds understood by analyze-text.
const (
	kindSentiment  = "SentimentAnalysis"
	kindKeyPhrases = "KeyPhraseExtraction"
	kindEntities   = "EntityRecognition"
	kindLanguage   = "LanguageDetection"
)

var errNoDocument = errors.New("response contains no document result")

// Config holds the Azure adapter configuration.
type Config struct {
	// Endpoint is the resource URL, e.g. "https://myres.cognitiveservices.azure.com".
	Endpoint string

	// Key is the resource subscription key.
	Key string

	// APIVersion overrides DefaultAPIVersion.
	APIVersion string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// RequestsPerSecond and Burst throttle outbound calls.
	RequestsPerSecond float64
	Burst             int
}

// Analyzer calls Azure AI Language.
type Analyzer struct {
	client     *client.Client
	apiVersion string
	throttle   *provider.Throttle
	logger     zerolog.Logger
}

// New builds an Azure-backed analyzer.
func New(cfg Config, logger zerolog.Logger) (*Analyzer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure language endpoint is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("azure language key is required")
	}

	ccfg := client.DefaultConfig("azure-language", cfg.Endpoint)
	ccfg.Headers[keyHeader] = cfg.Key
	if cfg.Timeout > 0 {
		ccfg.Timeout = cfg.Timeout
	}

	c, err := client.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	return &Analyzer{
		client:     c,
		apiVersion: version,
		throttle:   provider.NewThrottle(cfg.RequestsPerSecond, cfg.Burst),
		logger:     logger.With().Str("provider", string(provider.Azure)).Logger(),
	}, nil
}

// Name returns provider.Azure.
func (a *Analyzer) Name() provider.Name { return provider.Azure }

type analyzeRequest struct {
	Kind          string         `json:"kind"`
	Parameters    map[string]any `json:"parameters"`
	AnalysisInput analysisInput  `json:"analysisInput"`
}

type analysisInput struct {
	Documents []inputDocument `json:"documents"`
}

type inputDocument struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

type analyzeResponse struct {
	Kind    string `json:"kind"`
	Results struct {
		Documents json.RawMessage `json:"documents"`
		Errors    []documentError `json:"errors"`
	} `json:"results"`
}

type documentError struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type sentimentDocument struct {
	Sentiment        string `json:"sentiment"`
	ConfidenceScores struct {
		Positive float64 `json:"positive"`
		Neutral  float64 `json:"neutral"`
		Negative float64 `json:"negative"`
	} `json:"confidenceScores"`
}

type keyPhraseDocument struct {
	KeyPhrases []string `json:"keyPhrases"`
}

type entityDocument struct {
	Entities []struct {
		Text            string  `json:"text"`
		Category        string  `json:"category"`
		Subcategory     string  `json:"subcategory"`
		Offset          int     `json:"offset"`
		Length          int     `json:"length"`
		ConfidenceScore float64 `json:"confidenceScore"`
	} `json:"entities"`
}

type languageDocument struct {
	DetectedLanguage struct {
		Name            string  `json:"name"`
		ISO6391Name     string  `json:"iso6391Name"`
		ConfidenceScore float64 `json:"confidenceScore"`
	} `json:"detectedLanguage"`
}

// analyze runs one task over a single document and decodes its result into out.
func (a *Analyzer) analyze(ctx context.Context, kind, language, text string, out any) error {
	if err := a.throttle.Wait(ctx); err != nil {
		return err
	}

	req := analyzeRequest{
		Kind:       kind,
		Parameters: map[string]any{"modelVersion": "latest"},
		AnalysisInput: analysisInput{
			Documents: []inputDocument{{ID: "1", Language: language, Text: text}},
		},
	}

	query := url.Values{}
	query.Set("api-version", a.apiVersion)
	query.Set("stringIndexType", "UnicodeCodePoint")

	var resp analyzeResponse
	if err := a.client.PostJSON(ctx, analyzePath, query, req, &resp); err != nil {
		return err
	}

	if len(resp.Results.Errors) > 0 {
		e := resp.Results.Errors[0]
		return fmt.Errorf("document %s: %s: %s", e.ID, e.Error.Code, e.Error.Message)
	}

	// Unmarshal into a one-element slice of the task's document shape.
	if err := json.Unmarshal(resp.Results.Documents, out); err != nil {
		return fmt.Errorf("decode %s documents: %w", kind, err)
	}
	return nil
}

// AnalyzeSentiment returns the label form with positive/neutral/negative scores.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) provider.Result {
	var docs []sentimentDocument
	if err := a.analyze(ctx, kindSentiment, "en", text, &docs); err != nil {
		return a.fail(provider.Sentiment, err)
	}
	if len(docs) == 0 {
		return a.fail(provider.Sentiment, errNoDocument)
	}

	d := docs[0]
	return provider.Success(provider.LabeledSentiment{
		Sentiment: d.Sentiment,
		Scores: map[string]float64{
			"positive": d.ConfidenceScores.Positive,
			"neutral":  d.ConfidenceScores.Neutral,
			"negative": d.ConfidenceScores.Negative,
		},
	})
}

// ExtractKeyPhrases returns the document's key phrases.
func (a *Analyzer) ExtractKeyPhrases(ctx context.Context, text string) provider.Result {
	var docs []keyPhraseDocument
	if err := a.analyze(ctx, kindKeyPhrases, "en", text, &docs); err != nil {
		return a.fail(provider.KeyPhrases, err)
	}
	if len(docs) == 0 {
		return a.fail(provider.KeyPhrases, errNoDocument)
	}

	phrases := make(provider.KeyPhraseList, 0, len(docs[0].KeyPhrases))
	phrases = append(phrases, docs[0].KeyPhrases...)
	return provider.Success(phrases)
}

// RecognizeEntities maps entities; Type is the Azure category.
func (a *Analyzer) RecognizeEntities(ctx context.Context, text string) provider.Result {
	var docs []entityDocument
	if err := a.analyze(ctx, kindEntities, "en", text, &docs); err != nil {
		return a.fail(provider.Entities, err)
	}
	if len(docs) == 0 {
		return a.fail(provider.Entities, errNoDocument)
	}

	entities := make(provider.EntityList, 0, len(docs[0].Entities))
	for _, e := range docs[0].Entities {
		entities = append(entities, provider.Entity{
			Text:       e.Text,
			Type:       e.Category,
			Confidence: e.ConfidenceScore,
			Offset:     e.Offset,
			Length:     e.Length,
		})
	}
	return provider.Success(entities)
}

// DetectLanguage returns the single detected language with its name.
func (a *Analyzer) DetectLanguage(ctx context.Context, text string) provider.Result {
	var docs []languageDocument
	if err := a.analyze(ctx, kindLanguage, "", text, &docs); err != nil {
		return a.fail(provider.Language, err)
	}
	if len(docs) == 0 {
		return a.fail(provider.Language, errNoDocument)
	}

	l := docs[0].DetectedLanguage
	return provider.Success(provider.DetectedLanguage{
		Language:   l.ISO6391Name,
		Name:       l.Name,
		Confidence: l.ConfidenceScore,
	})
}

// Classify is not offered: Azure classification needs a trained custom project.
func (a *Analyzer) Classify(context.Context, string) provider.Result {
	a.logger.Debug().Msg("Azure classification requires a custom project")
	return provider.Failure(provider.FailureMessage(provider.Classification, provider.Azure))
}

func (a *Analyzer) fail(t provider.AnalysisType, err error) provider.Result {
	a.logger.Warn().Err(err).Str("analysis_type", string(t)).Msg("Azure Language call failed")
	return provider.Failure(provider.FailureMessage(t, provider.Azure))
}
