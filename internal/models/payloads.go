package models

// These structs define the JSON payloads exchanged between the review
// workflow and the Cloud Functions in this repository.

// PillarConfigPayload is the per-pillar configuration sent by the workflow.
type PillarConfigPayload struct {
	Name                   PillarName `json:"name"`
	Enabled                bool       `json:"enabled"`
	ModelID                string     `json:"modelId,omitempty"`
	SystemPrompt           string     `json:"systemPrompt,omitempty"`
	AdditionalInstructions string     `json:"additionalInstructions,omitempty"`
	MaxTokens              int        `json:"maxTokens,omitempty"`
	Temperature            float32    `json:"temperature,omitempty"`
	IncludeImages          bool       `json:"includeImages"`
	CheckGovernance        bool       `json:"checkGovernance"`
}

// ReviewExecutionRequest is the input for the review-executor function.
type ReviewExecutionRequest struct {
	ExecutionID         string                `json:"executionId"`
	Document            Document              `json:"document"`
	Pillars             []PillarConfigPayload `json:"pillars"`
	GovernancePolicyIDs []string              `json:"governancePolicyIds,omitempty"`
	ArchitecturePages   []int                 `json:"architecturePages,omitempty"`
	Language            string                `json:"language,omitempty"`
}

// CostSummary is the serialised form of a run's cost breakdown.
type CostSummary struct {
	Total             float64 `json:"total"`
	Inference         float64 `json:"inference"`
	ObjectStorage     float64 `json:"objectStorage"`
	TableStorage      float64 `json:"tableStorage"`
	ComputeInvocation float64 `json:"computeInvocation"`
	Other             float64 `json:"other"`
	ItemCount         int     `json:"itemCount"`
}

// ReviewExecutionResponse is the output of the review-executor function.
type ReviewExecutionResponse struct {
	Status           string                      `json:"status"`
	RunID            string                      `json:"runId"`
	PillarResults    map[PillarName]PillarResult `json:"pillarResults"`
	VisionSummary    string                      `json:"visionSummary"`
	OverallSummary   string                      `json:"overallSummary"`
	ExecutiveSummary string                      `json:"executiveSummary"`
	Cost             CostSummary                 `json:"cost"`
	ResultGCSUri     string                      `json:"resultGcsUri,omitempty"`
}

// ExecutiveSummaryRequest is the input for the executive-summarizer function.
type ExecutiveSummaryRequest struct {
	ReviewRequestID string                      `json:"reviewRequestId"`
	RunID           string                      `json:"runId"`
	DocumentTitle   string                      `json:"documentTitle"`
	Language        string                      `json:"language,omitempty"`
	PillarResults   map[PillarName]PillarResult `json:"pillarResults"`
	VisionSummary   string                      `json:"visionSummary,omitempty"`
}

// ExecutiveSummaryResponse is the output of the executive-summarizer function.
type ExecutiveSummaryResponse struct {
	Status           string  `json:"status"`
	ExecutiveSummary string  `json:"executiveSummary"`
	SummaryGCSUri    string  `json:"summaryGcsUri"`
	Cost             float64 `json:"cost"`
}

// ReviewWorkflowArgument is the argument passed to the review workflow when
// document intake accepts an upload.
type ReviewWorkflowArgument struct {
	DocumentID string `json:"documentId"`
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Format     Format `json:"format"`
	PageCount  int    `json:"pageCount,omitempty"`
}
