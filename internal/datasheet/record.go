package datasheet

import (
	"time"

	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
)

// PageTable is a table found on one page of the datasheet
type PageTable struct {
	Page int                `json:"page"`
	Data intelligence.Table `json:"data"`
}

// Content is the extracted body of a datasheet
type Content struct {
	Text   string      `json:"text"`
	Tables []PageTable `json:"tables"`
}

// ChatMessage is one question and answer about a datasheet
type ChatMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
}

// Record is one stored datasheet
type Record struct {
	ID            string                 `json:"id"`
	EquipmentName string                 `json:"equipment_name"`
	Manufacturer  string                 `json:"manufacturer,omitempty"`
	DocumentID    string                 `json:"document_id"`
	CreatedAt     time.Time              `json:"created_at"`
	Pages         string                 `json:"pages"`
	StartPage     int                    `json:"start_page"`
	EndPage       int                    `json:"end_page"`
	PDFPath       string                 `json:"pdf_path,omitempty"`
	Content       Content                `json:"content"`
	ParsedFields  *intelligence.FieldMap `json:"parsed_fields"`
	ChatHistory   []ChatMessage          `json:"chat_history"`
}

// DocumentEntry is the index entry of a split source document
type DocumentEntry struct {
	Filename        string    `json:"filename"`
	ProcessedAt     time.Time `json:"processed_at"`
	TotalDatasheets int       `json:"total_datasheets"`
	DatasheetIDs    []string  `json:"datasheet_ids"`
}

// IndexEntry is the index entry of one datasheet
type IndexEntry struct {
	DocumentID    string    `json:"document_id"`
	EquipmentName string    `json:"equipment_name"`
	Pages         string    `json:"pages"`
	CreatedAt     time.Time `json:"created_at"`
}

// Index lists every split document and datasheet
type Index struct {
	Documents  map[string]DocumentEntry `json:"documents"`
	Datasheets map[string]IndexEntry    `json:"datasheets"`
}

func newIndex() *Index {
	return &Index{
		Documents:  map[string]DocumentEntry{},
		Datasheets: map[string]IndexEntry{},
	}
}

// Summary is the listing view of a datasheet
type Summary struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	EquipmentName string    `json:"equipment_name"`
	Pages         string    `json:"pages"`
	CreatedAt     time.Time `json:"created_at"`
	FieldsCount   int       `json:"fields_count"`
}
