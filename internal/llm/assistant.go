package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
)

// emptyLibraryResponse answers a library chat when nothing is stored yet
const emptyLibraryResponse = "No documents have been processed yet. Please analyze some documents first to start chatting."

// ChatReply is a model answer about one document
type ChatReply struct {
	Response string `json:"response"`
	// Extracted holds a focused extraction when the question asked for one
	Extracted string `json:"extracted_fields,omitempty"`
}

// LibraryDocument is one stored document offered to a library chat
type LibraryDocument struct {
	DocumentFields
	ProcessedAt time.Time `json:"processed_at"`
}

// LibraryReply is a model answer across all stored documents
type LibraryReply struct {
	Response string           `json:"response"`
	Relevant []DocumentFields `json:"extracted_fields,omitempty"`
}

type documentSummary struct {
	Filename             string   `json:"filename"`
	ProcessedAt          string   `json:"processed_at"`
	ExtractedFieldsCount int      `json:"extracted_fields_count"`
	KeyFields            []string `json:"key_fields"`
}

// Assistant asks a Model about documents. A nil Model makes every call
// fail with KindInvalidInput.
type Assistant struct {
	model  Model
	logger *slog.Logger
}

// NewAssistant creates an assistant over model, which may be nil
func NewAssistant(model Model, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{model: model, logger: logger.With("component", "llm")}
}

// Configured reports whether a model is available
func (a *Assistant) Configured() bool {
	return a != nil && a.model != nil
}

func notConfigured(op string) error {
	return errors.New(errors.KindInvalidInput, op, "language model is not configured (set gcp project and region)")
}

// ChatDocument answers question from the text of one document. Questions
// asking to extract, find, get or show something also run a focused
// extraction.
func (a *Assistant) ChatDocument(ctx context.Context, text, question string) (*ChatReply, error) {
	const op = "chat with document"

	if !a.Configured() {
		return nil, notConfigured(op)
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.New(errors.KindInvalidInput, op, "message is required")
	}

	response, err := a.model.Generate(ctx, fmt.Sprintf(documentChatPrompt, text, question))
	if err != nil {
		return nil, errors.Wrap(errors.KindUpstream, op, err)
	}

	reply := &ChatReply{Response: response}
	if WantsExtraction(question, documentExtractKeywords) {
		extracted, err := a.extract(ctx, text, question)
		if err != nil {
			a.logger.Warn("focused extraction failed", "error", err)
		} else {
			reply.Extracted = extracted
		}
	}
	return reply, nil
}

// ExtractField asks the model for the value of one named field
func (a *Assistant) ExtractField(ctx context.Context, text, field string) (string, error) {
	const op = "extract field"

	if !a.Configured() {
		return "", notConfigured(op)
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return "", errors.New(errors.KindInvalidInput, op, "field name is required")
	}

	value, err := a.extract(ctx, text, fmt.Sprintf("Extract the field '%s' from this document", field))
	if err != nil {
		return "", errors.Wrap(errors.KindUpstream, op, err)
	}
	return value, nil
}

func (a *Assistant) extract(ctx context.Context, text, task string) (string, error) {
	value, err := a.model.Generate(ctx, fmt.Sprintf(extractPrompt, text, task))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// ChatLibrary answers question from the extracted fields of every stored
// document. Questions that ask to list or find something also get the
// matching fields back.
func (a *Assistant) ChatLibrary(ctx context.Context, docs []LibraryDocument, question string) (*LibraryReply, error) {
	const op = "chat with documents"

	if !a.Configured() {
		return nil, notConfigured(op)
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.New(errors.KindInvalidInput, op, "message is required")
	}
	if len(docs) == 0 {
		return &LibraryReply{Response: emptyLibraryResponse}, nil
	}

	var data strings.Builder
	fields := make([]DocumentFields, 0, len(docs))
	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summary := documentSummary{
			Filename:    doc.Name,
			ProcessedAt: doc.ProcessedAt.Format(time.RFC3339),
			KeyFields:   []string{},
		}
		if doc.Fields != nil && doc.Fields.Len() > 0 {
			fmt.Fprintf(&data, "\n\nDocument: %s\n", doc.Name)
			for _, key := range doc.Fields.Keys() {
				value, _ := doc.Fields.Get(key)
				fmt.Fprintf(&data, "- %s: %s\n", key, value)
			}
			keys := doc.Fields.Keys()
			summary.ExtractedFieldsCount = len(keys)
			summary.KeyFields = keys[:min(5, len(keys))]
			fields = append(fields, doc.DocumentFields)
		}
		summaries = append(summaries, summary)
	}

	summaryJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, op, err)
	}

	response, err := a.model.Generate(ctx, fmt.Sprintf(libraryChatPrompt, data.String(), summaryJSON, question))
	if err != nil {
		return nil, errors.Wrap(errors.KindUpstream, op, err)
	}

	reply := &LibraryReply{Response: response}
	if WantsExtraction(question, libraryExtractKeywords) {
		reply.Relevant = FindRelevant(fields, question)
	}
	return reply, nil
}
