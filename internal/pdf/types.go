package pdf

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// ValidationResult represents the result of a PDF validation operation
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// DocumentSummary is the JSON view of a read Document without its body
type DocumentSummary struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Pages      int    `json:"pages"`
	Tables     int    `json:"tables"`
	Words      int    `json:"words"`
	Characters int    `json:"characters"`
}

// Summary returns counts describing the document
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		Name:       d.Name,
		Size:       d.Size,
		Pages:      len(d.Pages),
		Tables:     len(d.Tables),
		Words:      len(d.Tokens),
		Characters: len(d.Text),
	}
}
