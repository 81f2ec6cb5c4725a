package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/review"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type memObjects map[string][]byte

func (m memObjects) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := m[bucket+"/"+key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return data, nil
}

type memDocuments struct {
	byHash  map[string]string
	created []models.DocumentRecord
	updates map[string]map[string]any
}

func newMemDocuments() *memDocuments {
	return &memDocuments{byHash: map[string]string{}, updates: map[string]map[string]any{}}
}

func (m *memDocuments) FindByHash(_ context.Context, hash string) (string, bool, error) {
	id, ok := m.byHash[hash]
	return id, ok, nil
}

func (m *memDocuments) Create(_ context.Context, rec models.DocumentRecord) (string, error) {
	m.created = append(m.created, rec)
	id := "doc-" + string(rune('0'+len(m.created)))
	m.byHash[rec.FileHash] = id
	return id, nil
}

func (m *memDocuments) Update(_ context.Context, id string, updates map[string]any) error {
	if m.updates[id] == nil {
		m.updates[id] = map[string]any{}
	}
	for k, v := range updates {
		m.updates[id][k] = v
	}
	return nil
}

type fakeWorkflows struct {
	started []models.ReviewWorkflowArgument
	err     error
}

func (f *fakeWorkflows) Start(_ context.Context, arg models.ReviewWorkflowArgument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.started = append(f.started, arg)
	return "projects/p/locations/l/workflows/w/executions/e1", nil
}

func newTestIntake(objects memObjects) (*IntakeFunction, *memDocuments, *fakeWorkflows) {
	docs := newMemDocuments()
	wf := &fakeWorkflows{}
	return &IntakeFunction{objects: objects, documents: docs, workflows: wf, pricing: cost.DefaultPricing()}, docs, wf
}

func TestIntake_ImageIsQueued(t *testing.T) {
	f, docs, wf := newTestIntake(memObjects{"uploads/diagram.PNG": []byte("png bytes")})
	if err := f.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "diagram.PNG"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(docs.created) != 1 || docs.created[0].Format != "png" || docs.created[0].Status != StatusValidating {
		t.Fatalf("created = %+v", docs.created)
	}
	if len(wf.started) != 1 || wf.started[0].Key != "diagram.PNG" || wf.started[0].Format != models.FormatPNG {
		t.Errorf("started = %+v", wf.started)
	}
	if got := docs.updates["doc-1"]["status"]; got != StatusQueued {
		t.Errorf("status = %v", got)
	}
}

func TestIntake_DuplicateIsSkipped(t *testing.T) {
	objects := memObjects{"uploads/a.png": []byte("same"), "uploads/b.png": []byte("same")}
	f, docs, wf := newTestIntake(objects)
	for _, name := range []string{"a.png", "b.png"} {
		if err := f.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	if len(docs.created) != 1 || len(wf.started) != 1 {
		t.Errorf("created=%d started=%d, want 1 each", len(docs.created), len(wf.started))
	}
}

func TestIntake_UnsupportedFormatIsRecordedOnly(t *testing.T) {
	f, docs, wf := newTestIntake(memObjects{"uploads/design.docx": []byte("docx")})
	if err := f.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "design.docx"}); err != nil {
		t.Fatal(err)
	}
	if len(docs.created) != 1 || docs.created[0].Status != StatusUnsupported || !strings.Contains(docs.created[0].ErrorDetails, "docx") {
		t.Errorf("created = %+v", docs.created)
	}
	if len(wf.started) != 0 {
		t.Error("workflow triggered for unsupported format")
	}
}

func TestIntake_CorruptPDFMarksFailed(t *testing.T) {
	f, docs, wf := newTestIntake(memObjects{"uploads/broken.pdf": []byte("not a pdf")})
	if err := f.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "broken.pdf"}); err == nil {
		t.Fatal("expected error")
	}
	if docs.updates["doc-1"]["status"] != StatusFailed {
		t.Errorf("updates = %+v", docs.updates)
	}
	if len(wf.started) != 0 {
		t.Error("workflow triggered for corrupt PDF")
	}
}

func TestIntake_WorkflowFailureMarksFailed(t *testing.T) {
	f, docs, wf := newTestIntake(memObjects{"uploads/d.jpg": []byte("jpg")})
	wf.err = errors.New("permission denied")
	err := f.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "d.jpg"})
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("err = %v", err)
	}
	if docs.updates["doc-1"]["status"] != StatusFailed {
		t.Errorf("updates = %+v", docs.updates)
	}
}

func TestIntake_MissingObject(t *testing.T) {
	f, docs, _ := newTestIntake(memObjects{})
	if err := f.Process(context.Background(), GCSEvent{Bucket: "uploads", Name: "gone.pdf"}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(docs.created) != 0 {
		t.Error("record created for missing object")
	}
}

type memSaver struct {
	objects map[string]string
	err     error
}

func (m *memSaver) Save(_ context.Context, name, content string) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	if _, exists := m.objects[name]; !exists {
		m.objects[name] = content
	}
	return nil
}

func (m *memSaver) URI(name string) string { return "gs://results/" + name }

type fakeRunner struct {
	got    review.ExecuteRequest
	result *review.ExecuteResult
	err    error
}

func (f *fakeRunner) ExecuteAll(_ context.Context, req review.ExecuteRequest) (*review.ExecuteResult, error) {
	f.got = req
	return f.result, f.err
}

func TestReviewExecutor_StoresResult(t *testing.T) {
	ledger := cost.NewLedger(cost.DefaultPricing())
	ledger.RecordInference("gemini-2.5-pro", "pillarReview:security", 1000, 200, 0)
	runner := &fakeRunner{result: &review.ExecuteResult{
		RunID: "run-1",
		PillarResults: map[models.PillarName]models.PillarResult{
			models.PillarSecurity: {PillarName: models.PillarSecurity, Status: models.PillarCompleted, Findings: "ok", Recommendations: []string{}},
		},
		OverallSummary: "summary",
		Cost:           ledger.Breakdown(),
	}}
	saver := &memSaver{}
	f := &ReviewExecutorFunction{runner: runner, results: saver, defaultLanguage: models.LanguageKorean}

	res, err := f.Process(context.Background(), &models.ReviewExecutionRequest{
		ExecutionID: "exec-1",
		Document:    models.Document{ID: "d1", ReviewRequestID: "rr-1", Bucket: "uploads", Key: "design.pdf"},
		Pillars:     []models.PillarConfigPayload{{Name: models.PillarSecurity, Enabled: true}},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if runner.got.Document.Format != models.FormatPDF || runner.got.Language != models.LanguageKorean {
		t.Errorf("runner request = %+v", runner.got)
	}
	if res.RunID != "run-1" || res.Cost.ItemCount != 1 || res.Cost.Total != ledger.Total() {
		t.Errorf("response = %+v", res)
	}
	if res.ResultGCSUri != "gs://results/reviews/rr-1/run-1/result.json" {
		t.Errorf("uri = %q", res.ResultGCSUri)
	}

	var stored map[string]any
	if err := json.Unmarshal([]byte(saver.objects["reviews/rr-1/run-1/result.json"]), &stored); err != nil {
		t.Fatalf("stored result is not JSON: %v", err)
	}
	if stored["runId"] != "run-1" || stored["executionId"] != "exec-1" || stored["language"] != "ko" {
		t.Errorf("stored = %v", stored)
	}
	if items, _ := stored["costItems"].([]any); len(items) != 1 {
		t.Errorf("costItems = %v", stored["costItems"])
	}
}

func TestReviewExecutor_PropagatesValidation(t *testing.T) {
	runner := &fakeRunner{err: errs.Validation("at least one pillar configuration is required")}
	saver := &memSaver{}
	f := &ReviewExecutorFunction{runner: runner, results: saver, defaultLanguage: models.LanguageEnglish}
	if _, err := f.Process(context.Background(), &models.ReviewExecutionRequest{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if len(saver.objects) != 0 {
		t.Error("nothing should be stored for a rejected run")
	}
}

type fakeSummarizer struct {
	in  review.ExecutiveInput
	err error
}

func (f *fakeSummarizer) Summarize(_ context.Context, in review.ExecutiveInput, ledger *cost.Ledger) (string, error) {
	f.in = in
	if f.err != nil {
		return "", f.err
	}
	ledger.RecordInference("gemini-2.5-flash", "executiveSummary", 3000, 500, 0)
	return "Executive view.", nil
}

func TestSummarizer_Process(t *testing.T) {
	s := &fakeSummarizer{}
	saver := &memSaver{}
	f := &SummarizerFunction{summarizer: s, results: saver, pricing: cost.DefaultPricing(), defaultLanguage: models.LanguageEnglish}
	req := &models.ExecutiveSummaryRequest{
		ReviewRequestID: "rr-1",
		RunID:           "run-1",
		DocumentTitle:   "Payments",
		Language:        "ko",
		PillarResults:   map[models.PillarName]models.PillarResult{models.PillarSecurity: {Status: models.PillarCompleted}},
	}
	res, err := f.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.ExecutiveSummary != "Executive view." || res.Cost <= 0 || res.SummaryGCSUri != "gs://results/reviews/rr-1/run-1/executive-summary.md" {
		t.Errorf("response = %+v", res)
	}
	if s.in.Language != models.LanguageKorean || s.in.Title != "Payments" {
		t.Errorf("input = %+v", s.in)
	}
	if saver.objects["reviews/rr-1/run-1/executive-summary.md"] != "Executive view." {
		t.Errorf("objects = %v", saver.objects)
	}
}

func TestSummarizer_Rejects(t *testing.T) {
	f := &SummarizerFunction{summarizer: &fakeSummarizer{}, results: &memSaver{}, pricing: cost.DefaultPricing()}
	for name, req := range map[string]*models.ExecutiveSummaryRequest{
		"no run":     {PillarResults: map[models.PillarName]models.PillarResult{models.PillarSecurity: {}}},
		"no results": {RunID: "run-1"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := f.Process(context.Background(), req); !errors.Is(err, errs.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
