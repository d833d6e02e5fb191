package google

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/googleapis/gax-go/v2"

	"github.com/Sternrassler/insight-engine/pkg/logging"
	"github.com/Sternrassler/insight-engine/pkg/provider"
)

type fakeLanguage struct {
	err error

	sentiment  *languagepb.AnalyzeSentimentResponse
	entities   *languagepb.AnalyzeEntitiesResponse
	categories *languagepb.ClassifyTextResponse

	lastDoc      *languagepb.Document
	lastEncoding languagepb.EncodingType
	closed       bool
}

func (f *fakeLanguage) AnalyzeSentiment(_ context.Context, req *languagepb.AnalyzeSentimentRequest, _ ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error) {
	f.lastDoc, f.lastEncoding = req.GetDocument(), req.GetEncodingType()
	return f.sentiment, f.err
}

func (f *fakeLanguage) AnalyzeEntities(_ context.Context, req *languagepb.AnalyzeEntitiesRequest, _ ...gax.CallOption) (*languagepb.AnalyzeEntitiesResponse, error) {
	f.lastDoc, f.lastEncoding = req.GetDocument(), req.GetEncodingType()
	return f.entities, f.err
}

func (f *fakeLanguage) ClassifyText(_ context.Context, req *languagepb.ClassifyTextRequest, _ ...gax.CallOption) (*languagepb.ClassifyTextResponse, error) {
	f.lastDoc = req.GetDocument()
	return f.categories, f.err
}

func (f *fakeLanguage) Close() error {
	f.closed = true
	return nil
}

func encode(t *testing.T, r provider.Result) string {
	t.Helper()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(data)
}

func mention(content string, offset int32) *languagepb.EntityMention {
	return &languagepb.EntityMention{
		Text: &languagepb.TextSpan{Content: content, BeginOffset: offset},
		Type: languagepb.EntityMention_PROPER,
	}
}

func TestAnalyzer_AnalyzeSentiment(t *testing.T) {
	fake := &fakeLanguage{
		sentiment: &languagepb.AnalyzeSentimentResponse{
			DocumentSentiment: &languagepb.Sentiment{Score: 0.8, Magnitude: 1.6},
			Language:          "en",
		},
	}
	a := newWithAPI(fake, Config{}, logging.Nop())

	got := encode(t, a.AnalyzeSentiment(context.Background(), "What a wonderful day"))
	if want := `{"sentiment":{"score":0.8,"magnitude":1.6}}`; got != want {
		t.Errorf("AnalyzeSentiment() = %s, want %s", got, want)
	}

	if fake.lastDoc.GetType() != languagepb.Document_PLAIN_TEXT {
		t.Errorf("document type = %v, want PLAIN_TEXT", fake.lastDoc.GetType())
	}
	if fake.lastDoc.GetContent() != "What a wonderful day" {
		t.Errorf("content = %q", fake.lastDoc.GetContent())
	}
	if fake.lastEncoding != languagepb.EncodingType_UTF32 {
		t.Errorf("encoding = %v, want UTF32", fake.lastEncoding)
	}
}

func TestAnalyzer_ExtractKeyPhrases(t *testing.T) {
	fake := &fakeLanguage{
		entities: &languagepb.AnalyzeEntitiesResponse{
			Entities: []*languagepb.Entity{
				{Name: "delivery", Salience: 0.2},
				{Name: "service", Salience: 0.7},
				{Name: "delivery", Salience: 0.05},
				{Name: "", Salience: 0.01},
			},
		},
	}
	a := newWithAPI(fake, Config{}, logging.Nop())

	got := encode(t, a.ExtractKeyPhrases(context.Background(), "service and delivery"))
	if want := `["service","delivery"]`; got != want {
		t.Errorf("ExtractKeyPhrases() = %s, want %s", got, want)
	}
}

func TestAnalyzer_RecognizeEntities(t *testing.T) {
	fake := &fakeLanguage{
		entities: &languagepb.AnalyzeEntitiesResponse{
			Entities: []*languagepb.Entity{
				{
					Name:     "Zürich",
					Type:     languagepb.Entity_LOCATION,
					Salience: 0.6,
					Mentions: []*languagepb.EntityMention{mention("Zürich", 8)},
				},
				{
					Name:     "Anna",
					Type:     languagepb.Entity_PERSON,
					Salience: 0.4,
				},
			},
		},
	}
	a := newWithAPI(fake, Config{}, logging.Nop())

	r := a.RecognizeEntities(context.Background(), "Welcome Zürich, Anna")
	p, ok := r.Payload()
	if !ok {
		t.Fatalf("RecognizeEntities() returned error marker %q", r.Message())
	}
	entities := p.(provider.EntityList)
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2", len(entities))
	}

	want := provider.Entity{Text: "Zürich", Type: "LOCATION", Confidence: 0.6, Offset: 8, Length: 6}
	if entities[0] != want {
		t.Errorf("entities[0] = %+v, want %+v", entities[0], want)
	}

	// Without mentions the offset is unknown and length falls back to the name.
	if entities[1].Offset != 0 || entities[1].Length != 4 || entities[1].Type != "PERSON" {
		t.Errorf("entities[1] = %+v", entities[1])
	}
}

func TestAnalyzer_DetectLanguage(t *testing.T) {
	t.Run("language reported", func(t *testing.T) {
		fake := &fakeLanguage{
			sentiment: &languagepb.AnalyzeSentimentResponse{
				DocumentSentiment: &languagepb.Sentiment{},
				Language:          "de",
			},
		}
		a := newWithAPI(fake, Config{}, logging.Nop())

		got := encode(t, a.DetectLanguage(context.Background(), "Guten Morgen"))
		if want := `{"language":"de","confidence":1}`; got != want {
			t.Errorf("DetectLanguage() = %s, want %s", got, want)
		}
	})

	t.Run("language missing", func(t *testing.T) {
		fake := &fakeLanguage{sentiment: &languagepb.AnalyzeSentimentResponse{}}
		a := newWithAPI(fake, Config{}, logging.Nop())

		if r := a.DetectLanguage(context.Background(), "???"); !r.IsError() {
			t.Error("missing language should be an error marker")
		}
	})
}

func TestAnalyzer_Classify(t *testing.T) {
	fake := &fakeLanguage{
		categories: &languagepb.ClassifyTextResponse{
			Categories: []*languagepb.ClassificationCategory{
				{Name: "/Arts & Entertainment/Music", Confidence: 0.75},
			},
		},
	}
	a := newWithAPI(fake, Config{}, logging.Nop())

	got := encode(t, a.Classify(context.Background(), "The orchestra played Beethoven's fifth symphony"))
	if want := `[{"category":"/Arts \u0026 Entertainment/Music","confidence":0.75}]`; got != want {
		t.Errorf("Classify() = %s, want %s", got, want)
	}
}

func TestAnalyzer_VendorErrorBecomesMarker(t *testing.T) {
	fake := &fakeLanguage{err: errors.New("rpc error: code = PermissionDenied")}
	a := newWithAPI(fake, Config{}, logging.Nop())
	ctx := context.Background()

	for _, at := range provider.AnalysisTypes() {
		op, _ := provider.OperationFor(a, at)
		r := op(ctx, "text")
		if !r.IsError() {
			t.Errorf("%s: expected error marker", at)
			continue
		}
		if want := provider.FailureMessage(at, provider.Google); r.Message() != want {
			t.Errorf("%s: message = %q, want %q", at, r.Message(), want)
		}
	}
}

func TestAnalyzer_Close(t *testing.T) {
	fake := &fakeLanguage{}
	a := newWithAPI(fake, Config{}, logging.Nop())

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.closed {
		t.Error("Close() did not close the client")
	}
}
