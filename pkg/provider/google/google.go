// Package google adapts Google Cloud Natural Language to provider.Analyzer.
package google

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/Sternrassler/insight-engine/pkg/provider"
)

// languageAPI is the subset of the Natural Language client the adapter calls.
type languageAPI interface {
	AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest, opts ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error)
	AnalyzeEntities(ctx context.Context, req *languagepb.AnalyzeEntitiesRequest, opts ...gax.CallOption) (*languagepb.AnalyzeEntitiesResponse, error)
	ClassifyText(ctx context.Context, req *languagepb.ClassifyTextRequest, opts ...gax.CallOption) (*languagepb.ClassifyTextResponse, error)
	Close() error
}

// Config holds the Google adapter configuration.
type Config struct {
	// APIKey authenticates with an API key.
	APIKey string

	// CredentialsFile is a service account JSON file, used when APIKey is empty.
	// With neither set, Application Default Credentials apply.
	CredentialsFile string

	// RequestsPerSecond and Burst throttle outbound calls.
	RequestsPerSecond float64
	Burst             int
}

// Analyzer calls Google Cloud Natural Language.
type Analyzer struct {
	api      languageAPI
	throttle *provider.Throttle
	logger   zerolog.Logger
}

// New dials the Natural Language API.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Analyzer, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	c, err := language.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google language client: %w", err)
	}

	return newWithAPI(c, cfg, logger), nil
}

func newWithAPI(api languageAPI, cfg Config, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		api:      api,
		throttle: provider.NewThrottle(cfg.RequestsPerSecond, cfg.Burst),
		logger:   logger.With().Str("provider", string(provider.Google)).Logger(),
	}
}

// Close releases the underlying gRPC connection.
func (a *Analyzer) Close() error {
	return a.api.Close()
}

// Name returns provider.Google.
func (a *Analyzer) Name() provider.Name { return provider.Google }

func document(text string) *languagepb.Document {
	return &languagepb.Document{
		Type:   languagepb.Document_PLAIN_TEXT,
		Source: &languagepb.Document_Content{Content: text},
	}
}

func (a *Analyzer) sentiment(ctx context.Context, text string) (*languagepb.AnalyzeSentimentResponse, error) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return a.api.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
		Document:     document(text),
		EncodingType: languagepb.EncodingType_UTF32,
	})
}

func (a *Analyzer) entities(ctx context.Context, text string) (*languagepb.AnalyzeEntitiesResponse, error) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return a.api.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{
		Document:     document(text),
		EncodingType: languagepb.EncodingType_UTF32,
	})
}

// AnalyzeSentiment returns the score plus magnitude form.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) provider.Result {
	resp, err := a.sentiment(ctx, text)
	if err != nil {
		return a.fail(provider.Sentiment, err)
	}

	s := resp.GetDocumentSentiment()
	return provider.Success(provider.PolarSentiment{
		Sentiment: provider.Polarity{
			Score:     provider.Score(s.GetScore()),
			Magnitude: provider.Score(s.GetMagnitude()),
		},
	})
}

// ExtractKeyPhrases has no native Google equivalent; entity names ordered
// by salience stand in for key phrases.
func (a *Analyzer) ExtractKeyPhrases(ctx context.Context, text string) provider.Result {
	resp, err := a.entities(ctx, text)
	if err != nil {
		return a.fail(provider.KeyPhrases, err)
	}

	ents := append([]*languagepb.Entity(nil), resp.GetEntities()...)
	sort.SliceStable(ents, func(i, j int) bool {
		return ents[i].GetSalience() > ents[j].GetSalience()
	})

	seen := make(map[string]struct{}, len(ents))
	phrases := make(provider.KeyPhraseList, 0, len(ents))
	for _, e := range ents {
		name := e.GetName()
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		phrases = append(phrases, name)
	}
	return provider.Success(phrases)
}

// RecognizeEntities maps entities using their first mention for position.
// Confidence carries the entity salience.
func (a *Analyzer) RecognizeEntities(ctx context.Context, text string) provider.Result {
	resp, err := a.entities(ctx, text)
	if err != nil {
		return a.fail(provider.Entities, err)
	}

	entities := make(provider.EntityList, 0, len(resp.GetEntities()))
	for _, e := range resp.GetEntities() {
		entity := provider.Entity{
			Text:       e.GetName(),
			Type:       e.GetType().String(),
			Confidence: provider.Score(e.GetSalience()),
			Length:     utf8.RuneCountInString(e.GetName()),
		}
		if mentions := e.GetMentions(); len(mentions) > 0 {
			span := mentions[0].GetText()
			entity.Offset = int(span.GetBeginOffset())
			entity.Length = utf8.RuneCountInString(span.GetContent())
		}
		entities = append(entities, entity)
	}
	return provider.Success(entities)
}

// DetectLanguage reports the language Google inferred while analyzing
// sentiment. The API gives no confidence, so it is reported as 1.
func (a *Analyzer) DetectLanguage(ctx context.Context, text string) provider.Result {
	resp, err := a.sentiment(ctx, text)
	if err != nil {
		return a.fail(provider.Language, err)
	}
	if resp.GetLanguage() == "" {
		return a.fail(provider.Language, fmt.Errorf("response carries no language"))
	}

	return provider.Success(provider.DetectedLanguage{
		Language:   resp.GetLanguage(),
		Confidence: 1,
	})
}

// Classify returns content categories such as "/Arts & Entertainment".
func (a *Analyzer) Classify(ctx context.Context, text string) provider.Result {
	if err := a.throttle.Wait(ctx); err != nil {
		return a.fail(provider.Classification, err)
	}

	resp, err := a.api.ClassifyText(ctx, &languagepb.ClassifyTextRequest{
		Document: document(text),
	})
	if err != nil {
		return a.fail(provider.Classification, err)
	}

	categories := make(provider.CategoryList, 0, len(resp.GetCategories()))
	for _, c := range resp.GetCategories() {
		categories = append(categories, provider.Category{
			Category:   c.GetName(),
			Confidence: provider.Score(c.GetConfidence()),
		})
	}
	return provider.Success(categories)
}

func (a *Analyzer) fail(t provider.AnalysisType, err error) provider.Result {
	a.logger.Warn().Err(err).Str("analysis_type", string(t)).Msg("Natural Language call failed")
	return provider.Failure(provider.FailureMessage(t, provider.Google))
}
