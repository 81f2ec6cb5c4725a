package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Format is the declared format of an uploaded architecture document.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
)

// Supported reports whether the format is one the review pipeline accepts.
func (f Format) Supported() bool {
	return f == FormatPDF || f.IsImage()
}

// IsImage reports whether the format is a single raster image.
func (f Format) IsImage() bool {
	return f == FormatPNG || f == FormatJPG || f == FormatJPEG
}

// MIMEType returns the media type for the format, or application/octet-stream.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	case FormatJPG, FormatJPEG:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// FormatFromName derives a declared format from an object name's extension.
// Unknown extensions are returned lower-cased so callers can report them.
func FormatFromName(name string) Format {
	return Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."))
}

// Language selects the wording of prompts, section headers and fallback
// messages. It never changes control flow.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageKorean  Language = "ko"
)

// ParseLanguage maps a caller-supplied tag to a Language, using fallback for
// anything unrecognised.
func ParseLanguage(tag string, fallback Language) Language {
	switch Language(strings.ToLower(strings.TrimSpace(tag))) {
	case LanguageKorean:
		return LanguageKorean
	case LanguageEnglish:
		return LanguageEnglish
	default:
		return fallback
	}
}

// Document is the immutable identity of an uploaded architecture document.
// Content derived during a run lives in ExtractionResult, never here.
type Document struct {
	ID              string `json:"id"`
	ReviewRequestID string `json:"reviewRequestId"`
	Version         int    `json:"version"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Bucket          string `json:"bucket"`
	Key             string `json:"key"`
	Format          Format `json:"format"`
}

// ExtractedImage is a raster image produced or fetched during extraction.
type ExtractedImage struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Bytes    []byte `json:"-"`
}

// ExtractionResult is the run-scoped content derived from a Document. It is
// built once per run and shared read-only by every pillar review.
type ExtractionResult struct {
	TextContent    string           `json:"textContent"`
	Images         []ExtractedImage `json:"-"`
	VisionSummary  string           `json:"visionSummary"`
	PageCount      int              `json:"pageCount,omitempty"`
	AnalyzedPages  []int            `json:"analyzedPages,omitempty"`
	SizeBytes      int              `json:"sizeBytes"`
	Degraded       bool             `json:"degraded"`
	DegradedReason string           `json:"degradedReason,omitempty"`
}

// PageAnalysis is one page's entry in an architecture page scan.
type PageAnalysis struct {
	PageNumber      int    `json:"pageNumber"`
	Text            string `json:"text"`
	HasArchitecture bool   `json:"hasArchitecture"`
	Confidence      int    `json:"confidence"`
}

// DocumentRecord is the Firestore record written by document intake.
type DocumentRecord struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Bucket              string    `firestore:"bucket,omitempty"`
	Format              string    `firestore:"format,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	SizeBytes           int64     `firestore:"sizeBytes,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"`
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}
