// Package emitter writes generated artifacts to the on-disk code
// cache as loadable JavaScript modules with a deterministic shape:
// imports, a globals literal, helper declarations, the default-exported
// handler, optional formBuilder/onInitialRender exports and a meta
// block.
package emitter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/request"
	"github.com/intelligent-react-components/irc-server/internal/response"
)

var importJoinRe = regexp.MustCompile(`,\s*import`)

// Writer emits generated modules into the cache directory. Re-emitting
// the same filename is a full replace; writers take no locks and
// concurrent regenerations of one filename are last-write-wins.
type Writer struct {
	cacheDir string
	log      *zap.Logger
}

// NewWriter creates a writer rooted at cacheDir.
func NewWriter(cacheDir string, log *zap.Logger) *Writer {
	return &Writer{cacheDir: cacheDir, log: log}
}

// ModulePath returns the path the artifact for filename lives at,
// whether or not it exists yet.
func (w *Writer) ModulePath(filename string) string {
	return filepath.Join(w.cacheDir, filename+".js")
}

// Exists reports whether an artifact is already cached for filename.
func (w *Writer) Exists(filename string) bool {
	_, err := os.Stat(w.ModulePath(filename))
	return err == nil
}

// Emit materializes the parsed response and writes the module (and an
// optional sibling stylesheet) for filename. The module source is
// assembled fully in memory first so a materialization failure writes
// no partial file; filesystem errors propagate to the orchestrator.
func (w *Writer) Emit(filename string, resp *request.AIResponse) (string, error) {
	body := resp.Response
	if body == nil || strings.TrimSpace(body.EventListener) == "" {
		return "", fmt.Errorf("response has no eventListener to emit: %w", response.ErrInvalidFunction)
	}

	var b strings.Builder

	cssPath := ""
	if body.CSS != nil && strings.TrimSpace(body.CSS.Styles) != "" {
		cssPath = filepath.Join(w.cacheDir, "css", filename+".css")
		fmt.Fprintf(&b, "import %q;\n", "./css/"+filename+".css")
	}

	b.WriteString(joinImports(body.Imports))
	b.WriteString("\n\n")

	globals, err := json.MarshalIndent(globalsOrEmpty(body.Globals), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize globals: %w", err)
	}
	fmt.Fprintf(&b, "const globals = %s;\n\n", globals)

	// Helpers are declared ahead of the handler so the handler and the
	// helpers can call each other by name.
	for _, helper := range body.HelperFunctions {
		def, err := response.Materialize(helper)
		if err != nil {
			return "", fmt.Errorf("helper function: %w", err)
		}
		if def == nil {
			continue
		}
		b.WriteString(def.Source())
		b.WriteString("\n\n")
	}

	handler, err := response.Materialize(body.EventListener)
	if err != nil {
		return "", fmt.Errorf("event listener: %w", err)
	}
	b.WriteString("export default ")
	b.WriteString(handler.Source())
	b.WriteString("\n")

	for _, named := range []struct {
		name string
		src  string
	}{
		{"formBuilder", body.FormBuilder},
		{"onInitialRender", body.OnInitialRender},
	} {
		def, err := response.Materialize(named.src)
		if err != nil {
			return "", fmt.Errorf("%s: %w", named.name, err)
		}
		if def == nil {
			continue
		}
		def.Name = named.name
		b.WriteString("\nexport ")
		b.WriteString(def.Source())
		b.WriteString("\n")
	}

	// meta feeds the developer-facing inspection panel, never program
	// logic.
	thoughts, _ := json.Marshal(resp.Thoughts)
	expect, _ := json.Marshal(resp.Expect)
	fmt.Fprintf(&b, "\nexport const meta = {\n  thoughts: %s,\n  expect: %s,\n};\n", thoughts, expect)

	if err := os.MkdirAll(filepath.Join(w.cacheDir, "css"), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	if cssPath != "" {
		if err := os.WriteFile(cssPath, []byte(body.CSS.Styles), 0o644); err != nil {
			return "", fmt.Errorf("failed to write stylesheet: %w", err)
		}
	}

	modulePath := w.ModulePath(filename)
	if err := os.WriteFile(modulePath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write module: %w", err)
	}

	w.log.Info("emitted artifact",
		zap.String("filename", filename),
		zap.String("path", modulePath),
		zap.Bool("css", cssPath != ""),
		zap.Int("helpers", len(body.HelperFunctions)))
	return modulePath, nil
}

// joinImports re-serializes the import-statement list with statement
// separators, defaulting to a comment line when absent.
func joinImports(imports []string) string {
	if len(imports) == 0 {
		return "// no imports"
	}
	joined := strings.Join(imports, ", ")
	return importJoinRe.ReplaceAllString(joined, "; import") + ";"
}

func globalsOrEmpty(globals map[string]interface{}) map[string]interface{} {
	if globals == nil {
		return map[string]interface{}{}
	}
	return globals
}
