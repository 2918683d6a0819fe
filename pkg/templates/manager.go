package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
)

// Template names shipped with the binary
const (
	ExtractSystem = "extract_system"
	ExtractUser   = "extract_user"
	ExplainSystem = "explain_system"
	ExplainUser   = "explain_user"
	RunReport     = "run_report"
)

//go:embed prompts/*.tmpl notifications/*.tmpl
var embedded embed.FS

// Renderer interface for template rendering (for dependency injection)
type Renderer interface {
	ExecuteTemplate(name string, data any) (string, error)
	TemplateExists(name string) bool
}

// Manager holds parsed templates
type Manager struct {
	templates *template.Template
}

// GetDefaultFuncMap returns common template helper functions
func GetDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"float": func(val any) float64 {
			switch v := val.(type) {
			case float64:
				return v
			case float32:
				return float64(v)
			case int:
				return float64(v)
			case int64:
				return float64(v)
			default:
				if dec, ok := val.(interface{ InexactFloat64() float64 }); ok {
					return dec.InexactFloat64()
				}
				return 0
			}
		},
		"join":  strings.Join,
		"upper": strings.ToUpper,
	}
}

// NewManager parses the embedded templates
func NewManager() (*Manager, error) {
	return NewManagerFromFS(embedded)
}

// NewManagerFromFS parses every *.tmpl file found one directory deep in fsys
func NewManagerFromFS(fsys fs.FS) (*Manager, error) {
	tmpl := template.New("root").Funcs(GetDefaultFuncMap())

	matches, err := fs.Glob(fsys, "*/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no templates found")
	}

	tmpl, err = tmpl.ParseFS(fsys, matches...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	logger.Debug("templates loaded", zap.Int("files", len(matches)))

	return &Manager{templates: tmpl}, nil
}

// NewManagerWithValidation creates manager and validates required templates exist
func NewManagerWithValidation(requiredTemplates []string) (*Manager, error) {
	manager, err := NewManager()
	if err != nil {
		return nil, err
	}

	for _, name := range requiredTemplates {
		if !manager.TemplateExists(name) {
			return nil, fmt.Errorf("required template not found: %s", name)
		}
	}

	return manager, nil
}

// ExecuteTemplate renders template with data
func (m *Manager) ExecuteTemplate(name string, data any) (string, error) {
	tmpl := m.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

// TemplateExists checks if template exists
func (m *Manager) TemplateExists(name string) bool {
	return m.templates.Lookup(name) != nil
}
