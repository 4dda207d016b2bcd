package pdf

import (
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
)

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// relaxedConfig tolerates the minor syntax errors CAD exports tend to carry
func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ValidateFile checks the file and parses it with pdfcpu. A structurally
// invalid file yields a result with Valid false, not an error.
func (v *Validator) ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{Path: path}

	if _, err := validatePDFFile(path, v.maxFileSize); err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation failures are reported in the result
	}

	if err := api.ValidateFile(path, relaxedConfig()); err != nil {
		result.Message = "invalid PDF file: " + err.Error()
		return result, nil //nolint:nilerr // validation failures are reported in the result
	}

	pages, err := PageCount(path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // validation failures are reported in the result
	}

	result.Valid = true
	result.Pages = pages
	return result, nil
}

// IsValidPDF performs a quick check to see if a file is a valid PDF
func (v *Validator) IsValidPDF(path string) bool {
	res, err := v.ValidateFile(path)
	return err == nil && res.Valid
}

// ValidateFileInfo validates a directory entry without opening it
func (v *Validator) ValidateFileInfo(path string, info os.FileInfo) error {
	const op = "pdf.validate_info"

	switch {
	case info.IsDir():
		return errors.New(errors.KindInvalidInput, op, "path is a directory, not a file").WithPath(path)
	case !strings.HasSuffix(strings.ToLower(path), ".pdf"):
		return errors.New(errors.KindInvalidInput, op, "file is not a PDF").WithPath(path)
	case info.Size() == 0:
		return errors.New(errors.KindInvalidInput, op, "file is empty").WithPath(path)
	case info.Size() > v.maxFileSize:
		return errors.New(errors.KindInvalidInput, op, "file too large").WithPath(path)
	}
	return nil
}
