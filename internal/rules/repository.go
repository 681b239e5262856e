// Package rules loads category-labeled compliance rules from a directory of
// flat text documents.
package rules

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conforme/conforme-cli/internal/model"
)

// instructionFile carries the AI instruction template, not rules.
const instructionFile = "instrucaoia.txt"

var (
	numPrefixRe = regexp.MustCompile(`^\d+_`)
	numberedRe  = regexp.MustCompile(`^\d+\.\s+`)
	titleCaser  = cases.Title(language.BrazilianPortuguese)
)

// Repository loads and caches rule categories from a directory. Load is
// cheap after the first call; pass reload=true to pick up edited documents.
type Repository struct {
	dir string

	mu    sync.Mutex
	cache []model.RuleCategory
}

// NewRepository creates a Repository over the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Load returns the rule categories in stable lexical document order.
// Categories that yield zero rules are dropped. A document that cannot be
// read is logged and skipped; it never fails the load.
func (r *Repository) Load(reload bool) ([]model.RuleCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache != nil && !reload {
		return r.cache, nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("rules: directory not found", zap.String("dir", r.dir))
			r.cache = []model.RuleCategory{}
			return r.cache, nil
		}
		return nil, err
	}

	categories := make([]model.RuleCategory, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(name) == instructionFile {
			continue
		}
		if strings.ToLower(filepath.Ext(name)) != ".txt" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			zap.L().Error("rules: read document failed",
				zap.String("file", name), zap.Error(err))
			continue
		}

		cat := model.RuleCategory{
			Name:  CategoryName(string(content), name),
			Rules: ExtractRules(string(content)),
		}
		if len(cat.Rules) == 0 {
			continue
		}
		categories = append(categories, cat)
		zap.L().Info("rules: category loaded",
			zap.String("category", cat.Name), zap.Int("rules", len(cat.Rules)))
	}

	r.cache = categories
	return r.cache, nil
}

// CategoryNames returns the loaded category names in document order.
func (r *Repository) CategoryNames() ([]string, error) {
	cats, err := r.Load(false)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

// LoadInstruction returns the AI instruction template stored alongside the
// rule documents, or the fallback text when the file is absent.
func (r *Repository) LoadInstruction() string {
	for _, candidate := range []string{"InstrucaoIA.txt", "instrucaoia.txt"} {
		data, err := os.ReadFile(filepath.Join(r.dir, candidate))
		if err == nil {
			return string(data)
		}
	}
	zap.L().Warn("rules: instruction file not found, using default")
	return "Analise o arquivo de marketing e verifique conformidade com as regras."
}

// CategoryName resolves a category name from the document content (first
// heading line) or, failing that, from the humanized filename with any
// leading numeric prefix stripped.
func CategoryName(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = numPrefixRe.ReplaceAllString(stem, "")
	return titleCaser.String(strings.ReplaceAll(stem, "_", " "))
}

// ExtractRules returns the bullet or numbered lines of a document with
// their prefixes stripped. Blank lines and headings are ignored.
func ExtractRules(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "- "):
			line = line[2:]
		case strings.HasPrefix(line, "* "):
			line = line[2:]
		case numberedRe.MatchString(line):
			line = numberedRe.ReplaceAllString(line, "")
		default:
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
