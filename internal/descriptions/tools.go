package descriptions

import (
	"sort"
	"strings"
)

// Tool descriptions with practical examples for engineering document work

const (
	// Analysis Tools
	AnalyzeFileDescription = `Extract document type, status, notes, patterns and technical fields from a P&ID or datasheet PDF.

**When to use:** A single drawing or datasheet needs its title-block and notes fields pulled out, for example before filing it or comparing revisions.

**Examples:**
• Read a drawing: "Analyze PID-100-001.pdf and tell me the document type and notes"
• Capture tags at the same time: "Analyze PID-100-001.pdf with extract_tags=true"

**Common workflows:**
1. Review: pid_analyze_file → pid_chat on the same path → pid_extract_field for anything missing
2. Indexing: pid_analyze_file with tags → pid_tags_for_file → pid_export_instruments

**Best practices:** The analysis is stored under a stable id derived from the path, so re-analyzing a file replaces its previous result. Scanned PDFs without a text layer are stored with file information only and reported as unreadable.`

	AnalyzeDirectoryDescription = `Analyze every PDF in a directory, optionally filtered by a name fragment.

**When to use:** A whole unit's drawing set arrives and needs indexing in one pass.

**Examples:**
• Index a unit: "Analyze all PDFs in /projects/unit-100 with extract_tags=true"
• Only P&IDs: "Analyze the directory with query 'PID-'"

**Best practices:** Files are processed concurrently. A file that fails is listed with its error and does not stop the rest of the batch.`

	// Tag Vocabulary Tools
	ExtractTagsDescription = `Find instrument tags (acronym + number, e.g. FV-1001, PT 1002) in a P&ID and record them in the shared vocabulary.

**When to use:** Building the instrument list of a drawing set, or checking which instruments a new drawing adds.

**Examples:**
• "Extract tags from PID-100-001.pdf"

**Best practices:** Each file is recorded once; processing it again reports "already processed". Acronyms never seen before are reported as new so they can be classified or marked as false positives.`

	TagStatsDescription = `Summarize the tag vocabulary: files processed, instruments found, known acronyms and false positives.

**When to use:** Checking the coverage of the instrument index, or spotting noisy acronyms that should be marked as not-tags.`

	TagsForFileDescription = `List the instruments recorded for one processed P&ID, with unit-prefixed tags and linked datasheet pages.

**When to use:** Reviewing what was captured from a drawing or cross-checking an instrument list.`

	RepairVocabularyDescription = `Remove orphaned instrument sets and empty file entries from the vocabulary until it is consistent.

**When to use:** After manual edits to the stored vocabulary, or when stats and per-file listings disagree. Each repair is logged with what it removed.`

	MarkNotTagDescription = `Mark an acronym as a false positive so it is no longer extracted as a tag.

**Examples:**
• Drawing notes produce "DN-50" pipe sizes: "Mark DN as not a tag"

**Best practices:** Existing records are kept; only future extraction skips the acronym.`

	ClassifyAcronymDescription = `Attach an instrument type to an acronym, e.g. FV → "Flow Control Valve".

**When to use:** After pid_extract_tags reports new acronyms. The type appears in exports.`

	// Datasheet Tools
	SplitDatasheetsDescription = `Split a multi-equipment datasheet PDF into one datasheet per equipment item and parse each one's fields.

**When to use:** Vendor packages that bundle several equipment datasheets in one file.

**Examples:**
• "Split vendor-pumps.pdf into datasheets"

**Common workflows:**
1. pid_split_datasheets → pid_list_datasheets → pid_get_datasheet → pid_chat with datasheet_id

**Best practices:** Boundaries come from equipment tags, titles and manufacturer lines on each page. When the server is started with a split output directory each datasheet is also written as its own PDF.`

	ListDatasheetsDescription = `List stored datasheets, newest first, optionally for one split document.`

	GetDatasheetDescription = `Return a stored datasheet with its page range, parsed fields, tables and chat history.`

	DeleteDatasheetDescription = `Delete a stored datasheet and remove it from the index. The parent document entry is dropped with its last datasheet.`

	// Language Model Tools
	ChatDescription = `Ask a question about a PDF, a stored datasheet, or every analyzed document.

**When to use:** Questions the field extractor cannot answer directly, such as "what is the design pressure of the suction line?".

**Examples:**
• One drawing: "Chat about PID-100-001.pdf: which control valves fail closed?"
• One datasheet: "Chat with datasheet P-100: what is the rated flow?"
• Whole library: "Which documents mention hydrotest requirements?"

**Best practices:** Requires a configured Google Cloud project. Datasheet conversations are saved in the datasheet's chat history.`

	ExtractFieldDescription = `Ask the language model for one named field of an analyzed PDF and store the answer, or delete a stored field.

**Examples:**
• "Extract 'Design Pressure' from PID-100-001.pdf"
• "Delete the field 'Revision' from PID-100-001.pdf"

**Best practices:** Run pid_analyze_file first. Extraction requires a configured Google Cloud project; deletion does not.`

	// Export Tools
	ExportInstrumentsDescription = `Write an Excel workbook of the instrument index, the stored analyses, or the parsed datasheets.

**When to use:** Handing the instrument list to procurement or comparing analyses in a spreadsheet.

**Best practices:** Workbooks are written under the data directory's exports folder with a timestamped name.`

	// Server Tools
	ServerInfoDescription = `Show server configuration, storage backend, language model status, the PDFs in the default directory and the available tools.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pid_analyze_file":       AnalyzeFileDescription,
	"pid_analyze_directory":  AnalyzeDirectoryDescription,
	"pid_extract_tags":       ExtractTagsDescription,
	"pid_tag_stats":          TagStatsDescription,
	"pid_tags_for_file":      TagsForFileDescription,
	"pid_repair_vocabulary":  RepairVocabularyDescription,
	"pid_mark_not_tag":       MarkNotTagDescription,
	"pid_classify_acronym":   ClassifyAcronymDescription,
	"pid_split_datasheets":   SplitDatasheetsDescription,
	"pid_list_datasheets":    ListDatasheetsDescription,
	"pid_get_datasheet":      GetDatasheetDescription,
	"pid_delete_datasheet":   DeleteDatasheetDescription,
	"pid_chat":               ChatDescription,
	"pid_extract_field":      ExtractFieldDescription,
	"pid_export_instruments": ExportInstrumentsDescription,
	"pid_server_info":        ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetToolSummary returns the first line of a tool's description
func GetToolSummary(toolName string) string {
	desc := GetToolDescription(toolName)
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		return desc[:i]
	}
	return desc
}

// GetAllToolNames returns all tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
