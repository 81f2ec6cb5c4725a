package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/gcp"
	"github.com/Lllllllleong/architecturereview/internal/models"
	"github.com/Lllllllleong/architecturereview/internal/pdfpages"
)

// Document statuses written by intake.
const (
	StatusValidating  = "VALIDATING"
	StatusUnsupported = "UNSUPPORTED"
	StatusQueued      = "QUEUED"
	StatusFailed      = "FAILED"
)

type IntakeConfig struct {
	ProjectID        string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

// GCSEvent is the payload of a storage object-finalized CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
	Size   string `json:"size,omitempty"`
}

type objectGetter interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// documentStore persists intake records.
type documentStore interface {
	FindByHash(ctx context.Context, fileHash string) (id string, found bool, err error)
	Create(ctx context.Context, rec models.DocumentRecord) (string, error)
	Update(ctx context.Context, id string, updates map[string]any) error
}

// workflowStarter hands an accepted document to the review workflow.
type workflowStarter interface {
	Start(ctx context.Context, arg models.ReviewWorkflowArgument) (string, error)
}

// IntakeFunction registers uploaded documents and triggers their review.
type IntakeFunction struct {
	objects   objectGetter
	documents documentStore
	workflows workflowStarter
	pricing   cost.Pricing
}

func NewIntake(ctx context.Context) (*IntakeFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := IntakeConfig{
		ProjectID:        projectID,
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "architecture-review-orchestrator"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, gcp.GetEnv("FIRESTORE_DATABASE", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &IntakeFunction{
		objects:   gcp.NewObjectStore(storageClient),
		documents: &firestoreDocuments{collection: firestoreClient.Collection(config.CollectionName)},
		workflows: &workflowExecutions{
			client: executionsClient,
			parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", config.ProjectID, config.WorkflowLocation, config.WorkflowID),
		},
		pricing: cost.DefaultPricing(),
	}
	slog.Info("Document intake initialized.", "workflowId", config.WorkflowID, "collection", config.CollectionName)
	return f, nil
}

// Process registers one uploaded object. Duplicates (same SHA-256) are
// skipped; unsupported formats are recorded but never reviewed.
func (f *IntakeFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")
	ledger := cost.NewLedger(f.pricing)

	content, err := f.objects.Get(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download uploaded object", "error", err)
		return err
	}
	ledger.RecordStorageRead("intakeDownload", len(content))

	sum := sha256.Sum256(content)
	fileHash := hex.EncodeToString(sum[:])
	logCtx = logCtx.With("fileHash", fileHash)

	existingID, found, err := f.documents.FindByHash(ctx, fileHash)
	ledger.RecordTableReads("intakeDuplicateCheck", 1)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if found {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existingID)
		return nil
	}

	format := models.FormatFromName(e.Name)
	rec := models.DocumentRecord{
		FileHash:         fileHash,
		OriginalFilename: e.Name,
		Bucket:           e.Bucket,
		Format:           string(format),
		Status:           StatusValidating,
		SizeBytes:        int64(len(content)),
		CreatedAt:        time.Now().UTC(),
	}
	if !format.Supported() {
		rec.Status = StatusUnsupported
		rec.ErrorDetails = fmt.Sprintf("unsupported format %q; accepted formats are pdf, png, jpg and jpeg", format)
	}
	docID, err := f.documents.Create(ctx, rec)
	if err != nil {
		logCtx.Error("Failed to create Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docID, "format", format)
	if !format.Supported() {
		logCtx.Warn("Unsupported format recorded; review not triggered.")
		return nil
	}

	var pageCount int
	if format == models.FormatPDF {
		pageCount, err = pdfpages.PageCount(content)
		if err != nil {
			return f.fail(ctx, logCtx, docID, "failed to read PDF page count", err)
		}
	}

	arg := models.ReviewWorkflowArgument{
		DocumentID: docID,
		Bucket:     e.Bucket,
		Key:        e.Name,
		Format:     format,
		PageCount:  pageCount,
	}
	executionID, err := f.workflows.Start(ctx, arg)
	if err != nil {
		return f.fail(ctx, logCtx, docID, "failed to trigger workflow execution", err)
	}

	updates := map[string]any{"status": StatusQueued, "workflowExecutionId": executionID}
	if pageCount > 0 {
		updates["pageCount"] = pageCount
	}
	if err := f.documents.Update(ctx, docID, updates); err != nil {
		logCtx.Warn("Failed to mark document queued", "error", err)
	}
	ledger.RecordInvocation("intakeWorkflowTrigger")
	logCtx.Info("Hand-off to workflow complete.", "pageCount", pageCount, "executionId", executionID, "cost", ledger.Breakdown().String())
	return nil
}

func (f *IntakeFunction) fail(ctx context.Context, logCtx *slog.Logger, docID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.documents.Update(ctx, docID, map[string]any{"status": StatusFailed, "errorDetails": fullError}); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

type firestoreDocuments struct {
	collection *firestore.CollectionRef
}

func (d *firestoreDocuments) FindByHash(ctx context.Context, fileHash string) (string, bool, error) {
	docs, err := d.collection.Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, true, nil
	}
	return "", false, nil
}

func (d *firestoreDocuments) Create(ctx context.Context, rec models.DocumentRecord) (string, error) {
	ref, _, err := d.collection.Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to create document record: %w", err)
	}
	return ref.ID, nil
}

func (d *firestoreDocuments) Update(ctx context.Context, id string, updates map[string]any) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for path, value := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{Path: path, Value: value})
	}
	_, err := d.collection.Doc(id).Update(ctx, fsUpdates)
	return err
}

type workflowExecutions struct {
	client *executions.Client
	parent string
}

func (w *workflowExecutions) Start(ctx context.Context, arg models.ReviewWorkflowArgument) (string, error) {
	payload, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := w.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    w.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	})
	if err != nil {
		return "", err
	}
	return exec.GetName(), nil
}
