package pdf

import (
	"fmt"

	"github.com/a3tai/mcp-pid-extractor/internal/pdf/security"
)

// Service guards every PDF operation with the configured directory check
type Service struct {
	maxFileSize   int64
	reader        *Reader
	validator     *Validator
	search        *Search
	pathValidator *security.PathValidator
}

// NewService creates a new PDF service rooted at configuredDirectory
func NewService(maxFileSize int64, configuredDirectory string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		reader:        NewReader(maxFileSize),
		validator:     NewValidator(maxFileSize),
		search:        NewSearch(maxFileSize),
		pathValidator: pathValidator,
	}, nil
}

// Resolve maps a path relative to the configured directory onto an
// absolute one and checks that it stays inside
func (s *Service) Resolve(path string) (string, error) {
	return s.pathValidator.Resolve(path)
}

// ReadFile extracts the document at path
func (s *Service) ReadFile(path string) (*Document, error) {
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return nil, err
	}
	return s.reader.ReadFile(path)
}

// ReadBytes extracts a document that is not on disk
func (s *Service) ReadBytes(name string, data []byte) (*Document, error) {
	return s.reader.ReadBytes(name, data)
}

// ValidateFile performs validation on a PDF file
func (s *Service) ValidateFile(path string) (*ValidationResult, error) {
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return nil, err
	}
	return s.validator.ValidateFile(path)
}

// FindPDFs lists PDFs under directory, defaulting to the configured one
func (s *Service) FindPDFs(directory, query string) ([]FileInfo, error) {
	if directory == "" {
		directory = s.pathValidator.GetConfiguredDirectory()
	}
	if err := s.pathValidator.ValidateDirectory(directory); err != nil {
		return nil, err
	}
	return s.search.FindPDFs(directory, query)
}

// TrimPages cuts a page range of a validated source into out
func (s *Service) TrimPages(in, out string, start, end int) error {
	if err := s.pathValidator.ValidatePath(in); err != nil {
		return err
	}
	return TrimPages(in, out, start, end)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// ConfiguredDirectory returns the directory paths are checked against
func (s *Service) ConfiguredDirectory() string {
	return s.pathValidator.GetConfiguredDirectory()
}
