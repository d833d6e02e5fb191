// Package aws adapts Amazon Comprehend to provider.Analyzer.
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/insight-engine/pkg/provider"
)

// comprehendAPI is the subset of the Comprehend client the adapter calls.
type comprehendAPI interface {
	DetectSentiment(ctx context.Context, in *comprehend.DetectSentimentInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error)
	DetectKeyPhrases(ctx context.Context, in *comprehend.DetectKeyPhrasesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectKeyPhrasesOutput, error)
	DetectEntities(ctx context.Context, in *comprehend.DetectEntitiesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectEntitiesOutput, error)
	DetectDominantLanguage(ctx context.Context, in *comprehend.DetectDominantLanguageInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectDominantLanguageOutput, error)
	ClassifyDocument(ctx context.Context, in *comprehend.ClassifyDocumentInput, optFns ...func(*comprehend.Options)) (*comprehend.ClassifyDocumentOutput, error)
}

// Config holds the Comprehend adapter configuration.
type Config struct {
	// Region is the AWS region hosting Comprehend.
	Region string

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default AWS credential chain applies.
	AccessKeyID     string
	SecretAccessKey string

	// ClassifierARN is a custom classifier endpoint. Classification is
	// unavailable without one.
	ClassifierARN string

	// RequestsPerSecond and Burst throttle outbound calls.
	RequestsPerSecond float64
	Burst             int
}

// Analyzer calls Amazon Comprehend.
type Analyzer struct {
	api           comprehendAPI
	classifierARN string
	throttle      *provider.Throttle
	logger        zerolog.Logger
}

// New loads AWS configuration and builds a Comprehend-backed analyzer.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Analyzer, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("aws region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newWithAPI(comprehend.NewFromConfig(awsCfg), cfg, logger), nil
}

func newWithAPI(api comprehendAPI, cfg Config, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		api:           api,
		classifierARN: cfg.ClassifierARN,
		throttle:      provider.NewThrottle(cfg.RequestsPerSecond, cfg.Burst),
		logger:        logger.With().Str("provider", string(provider.AWS)).Logger(),
	}
}

// Name returns provider.AWS.
func (a *Analyzer) Name() provider.Name { return provider.AWS }

// AnalyzeSentiment returns the label form with Mixed/Negative/Neutral/Positive scores.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) provider.Result {
	if err := a.throttle.Wait(ctx); err != nil {
		return a.fail(provider.Sentiment, err)
	}

	out, err := a.api.DetectSentiment(ctx, &comprehend.DetectSentimentInput{
		Text:         awssdk.String(text),
		LanguageCode: types.LanguageCodeEn,
	})
	if err != nil {
		return a.fail(provider.Sentiment, err)
	}

	scores := map[string]float64{}
	if s := out.SentimentScore; s != nil {
		scores["Mixed"] = f32(s.Mixed)
		scores["Negative"] = f32(s.Negative)
		scores["Neutral"] = f32(s.Neutral)
		scores["Positive"] = f32(s.Positive)
	}

	return provider.Success(provider.LabeledSentiment{
		Sentiment: string(out.Sentiment),
		Scores:    scores,
	})
}

// ExtractKeyPhrases returns phrases in the order Comprehend reports them.
func (a *Analyzer) ExtractKeyPhrases(ctx context.Context, text string) provider.Result {
	if err := a.throttle.Wait(ctx); err != nil {
		return a.fail(provider.KeyPhrases, err)
	}

	out, err := a.api.DetectKeyPhrases(ctx, &comprehend.DetectKeyPhrasesInput{
		Text:         awssdk.String(text),
		LanguageCode: types.LanguageCodeEn,
	})
	if err != nil {
		return a.fail(provider.KeyPhrases, err)
	}

	phrases := make(provider.KeyPhraseList, 0, len(out.KeyPhrases))
	for _, kp := range out.KeyPhrases {
		phrases = append(phrases, awssdk.ToString(kp.Text))
	}
	return provider.Success(phrases)
}

// RecognizeEntities maps Comprehend entities; Length is EndOffset - BeginOffset.
func (a *Analyzer) RecognizeEntities(ctx context.Context, text string) provider.Result {
	if err := a.throttle.Wait(ctx); err != nil {
		return a.fail(provider.Entities, err)
	}

	out, err := a.api.DetectEntities(ctx, &comprehend.DetectEntitiesInput{
		Text:         awssdk.String(text),
		LanguageCode: types.LanguageCodeEn,
	})
	if err != nil {
		return a.fail(provider.Entities, err)
	}

	entities := make(provider.EntityList, 0, len(out.Entities))
	for _, e := range out.Entities {
		begin := int(awssdk.ToInt32(e.BeginOffset))
		end := int(awssdk.ToInt32(e.EndOffset))
		entities = append(entities, provider.Entity{
			Text:       awssdk.ToString(e.Text),
			Type:       string(e.Type),
			Confidence: f32(e.Score),
			Offset:     begin,
			Length:     end - begin,
		})
	}
	return provider.Success(entities)
}

// DetectLanguage returns every candidate Comprehend reports.
func (a *Analyzer) DetectLanguage(ctx context.Context, text string) provider.Result {
	if err := a.throttle.Wait(ctx); err != nil {
		return a.fail(provider.Language, err)
	}

	out, err := a.api.DetectDominantLanguage(ctx, &comprehend.DetectDominantLanguageInput{
		Text: awssdk.String(text),
	})
	if err != nil {
		return a.fail(provider.Language, err)
	}

	langs := make(provider.LanguageCandidates, 0, len(out.Languages))
	for _, l := range out.Languages {
		langs = append(langs, provider.DetectedLanguage{
			Language:   awssdk.ToString(l.LanguageCode),
			Confidence: f32(l.Score),
		})
	}
	return provider.Success(langs)
}

// Classify runs the configured custom classifier endpoint.
func (a *Analyzer) Classify(ctx context.Context, text string) provider.Result {
	if a.classifierARN == "" {
		a.logger.Debug().Msg("No Comprehend classifier endpoint configured")
		return provider.Failure(provider.FailureMessage(provider.Classification, provider.AWS))
	}

	if err := a.throttle.Wait(ctx); err != nil {
		return a.fail(provider.Classification, err)
	}

	out, err := a.api.ClassifyDocument(ctx, &comprehend.ClassifyDocumentInput{
		EndpointArn: awssdk.String(a.classifierARN),
		Text:        awssdk.String(text),
	})
	if err != nil {
		return a.fail(provider.Classification, err)
	}

	categories := make(provider.CategoryList, 0, len(out.Classes))
	for _, c := range out.Classes {
		categories = append(categories, provider.Category{
			Category:   awssdk.ToString(c.Name),
			Confidence: f32(c.Score),
		})
	}
	return provider.Success(categories)
}

func (a *Analyzer) fail(t provider.AnalysisType, err error) provider.Result {
	a.logger.Warn().Err(err).Str("analysis_type", string(t)).Msg("Comprehend call failed")
	return provider.Failure(provider.FailureMessage(t, provider.AWS))
}

func f32(p *float32) float64 {
	return provider.Score(awssdk.ToFloat32(p))
}
