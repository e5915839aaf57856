package instruction

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

//go:embed templates
var defaultTemplates embed.FS

// Fragment names in assembly order. Each resolves to a markdown file
// in the store; a missing file is skipped, never fatal.
const (
	FragmentGeneral           = "general_instruction.md"
	FragmentExpectedInput     = "expected_input.md"
	FragmentProcessing        = "processing.md"
	FragmentThoughtProcess    = "thought_process.md"
	FragmentResponseFormat    = "response_format.md"
	FragmentGlobals           = "globals.md"
	FragmentHelperFunctions   = "helper_functions.md"
	FragmentPreventDuplicates = "prevent_duplicates.md"
	FragmentInvalidRequests   = "invalid_requests.md"
	FragmentArgsAccess        = "args_access.md"
	FragmentDatabaseKeywords  = "database_keywords.md"
	FragmentAdditionals       = "additionals.md"
)

// Store reads named markdown instruction fragments. Fragments are
// looked up on disk under the configured root first so a project can
// override individual files; the embedded default set backs the rest.
type Store struct {
	root string
	log  *zap.Logger
}

// NewStore creates a fragment store rooted at dir. An empty dir serves
// the embedded defaults only.
func NewStore(dir string, log *zap.Logger) *Store {
	return &Store{root: dir, log: log}
}

// Load returns the named fragment's text. The boolean is false when
// the fragment exists in neither the root directory nor the embedded
// defaults; the miss is logged and the caller skips the fragment.
func (s *Store) Load(name string) (string, bool) {
	if s.root != "" {
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(name)))
		if err == nil {
			return string(data), true
		}
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read instruction fragment", zap.String("fragment", name), zap.Error(err))
		}
	}

	data, err := defaultTemplates.ReadFile("templates/" + name)
	if err != nil {
		s.log.Warn("instruction fragment missing, skipping", zap.String("fragment", name))
		return "", false
	}
	return string(data), true
}

// LoadOptional behaves like Load but stays silent on a miss; used for
// fragments that exist only for some elements or example keys.
func (s *Store) LoadOptional(name string) (string, bool) {
	if s.root != "" {
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(name)))
		if err == nil {
			return string(data), true
		}
	}
	data, err := defaultTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// WriteDefaults copies the embedded fragment tree into dir so a
// project can edit the instruction set. Existing files are preserved.
func WriteDefaults(dir string) error {
	return fs.WalkDir(defaultTemplates, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("templates", path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		data, err := defaultTemplates.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
