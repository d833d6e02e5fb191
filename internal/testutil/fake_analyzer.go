package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/insight-engine/pkg/provider"
)

// FakeAnalyzer is a scriptable provider.Analyzer.
type FakeAnalyzer struct {
	name provider.Name

	mu            sync.Mutex
	results       map[provider.AnalysisType]provider.Result
	delay         time.Duration
	ignoreContext bool
	panics        bool
	calls         map[provider.AnalysisType]int
	lastText      string
}

// NewFakeAnalyzer returns an analyzer that answers every analysis with a
// small success payload naming the provider.
func NewFakeAnalyzer(name provider.Name) *FakeAnalyzer {
	return &FakeAnalyzer{
		name:    name,
		results: DefaultResults(name),
		calls:   make(map[provider.AnalysisType]int),
	}
}

// DefaultResults returns the canned per-type payloads used by NewFakeAnalyzer.
func DefaultResults(name provider.Name) map[provider.AnalysisType]provider.Result {
	sentiment := provider.Success(provider.LabeledSentiment{
		Sentiment: "positive",
		Scores:    map[string]float64{"positive": 0.9, "neutral": 0.08, "negative": 0.02},
	})
	if name == provider.Google {
		sentiment = provider.Success(provider.PolarSentiment{
			Sentiment: provider.Polarity{Score: 0.8, Magnitude: 0.8},
		})
	}

	return map[provider.AnalysisType]provider.Result{
		provider.Sentiment:  sentiment,
		provider.KeyPhrases: provider.Success(provider.KeyPhraseList{string(name) + " phrase"}),
		provider.Entities: provider.Success(provider.EntityList{
			{Text: "Paris", Type: "Location", Confidence: 0.99, Offset: 0, Length: 5},
		}),
		provider.Language: provider.Success(provider.DetectedLanguage{Language: "en", Confidence: 1}),
		provider.Classification: provider.Success(provider.CategoryList{
			{Category: "/Travel", Confidence: 0.7},
		}),
	}
}

// WithResult scripts the result of one analysis type.
func (f *FakeAnalyzer) WithResult(t provider.AnalysisType, r provider.Result) *FakeAnalyzer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[t] = r
	return f
}

// WithDelay makes every call take d. The call returns early when its
// context ends unless ignoreContext is set.
func (f *FakeAnalyzer) WithDelay(d time.Duration, ignoreContext bool) *FakeAnalyzer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	f.ignoreContext = ignoreContext
	return f
}

// WithPanic makes every call panic.
func (f *FakeAnalyzer) WithPanic() *FakeAnalyzer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics = true
	return f
}

// Calls returns how often analysis t was requested.
func (f *FakeAnalyzer) Calls(t provider.AnalysisType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[t]
}

// TotalCalls returns the number of calls across all analysis types.
func (f *FakeAnalyzer) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// LastText returns the text of the most recent call.
func (f *FakeAnalyzer) LastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastText
}

func (f *FakeAnalyzer) Name() provider.Name { return f.name }

func (f *FakeAnalyzer) AnalyzeSentiment(ctx context.Context, text string) provider.Result {
	return f.run(ctx, provider.Sentiment, text)
}

func (f *FakeAnalyzer) ExtractKeyPhrases(ctx context.Context, text string) provider.Result {
	return f.run(ctx, provider.KeyPhrases, text)
}

func (f *FakeAnalyzer) RecognizeEntities(ctx context.Context, text string) provider.Result {
	return f.run(ctx, provider.Entities, text)
}

func (f *FakeAnalyzer) DetectLanguage(ctx context.Context, text string) provider.Result {
	return f.run(ctx, provider.Language, text)
}

func (f *FakeAnalyzer) Classify(ctx context.Context, text string) provider.Result {
	return f.run(ctx, provider.Classification, text)
}

func (f *FakeAnalyzer) run(ctx context.Context, t provider.AnalysisType, text string) provider.Result {
	f.mu.Lock()
	f.calls[t]++
	f.lastText = text
	delay, ignoreContext, panics := f.delay, f.ignoreContext, f.panics
	result, ok := f.results[t]
	f.mu.Unlock()

	if panics {
		panic("fake analyzer failure")
	}

	if delay > 0 {
		if ignoreContext {
			time.Sleep(delay)
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return provider.Failure(provider.FailureMessage(t, f.name))
			}
		}
	}

	if !ok {
		return provider.Failure(provider.FailureMessage(t, f.name))
	}
	return result
}
