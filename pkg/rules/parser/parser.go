package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/verity/pkg/rules/ast"
	rulesErrors "mercator-hq/verity/pkg/rules/errors"
)

// Parser parses rule files into Abstract Syntax Trees.
// It handles YAML parsing, AST construction, and basic structural checks.
type Parser struct {
	maxFileSize int64    // Maximum file size in bytes (default: 10MB)
	extensions  []string // File extensions loaded by ParseDir
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
		extensions:  []string{".yaml", ".yml"},
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithExtensions sets the file extensions loaded by ParseDir.
func (p *Parser) WithExtensions(exts []string) *Parser {
	p.extensions = exts
	return p
}

// Parse parses a rule file at the given path and returns the AST.
// It returns an error if the file cannot be read, has invalid YAML syntax,
// or contains structural errors.
func (p *Parser) Parse(path string) (*ast.RuleSet, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}

	if fileInfo.Size() > p.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", fileInfo.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}

	return p.ParseBytes(data, path)
}

// ParseBytes parses rule set YAML from a byte slice.
// This is useful for testing or parsing rule sets from memory.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.RuleSet, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	yrs, err := parseYAMLBytes(data)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:    rulesErrors.ErrorTypeSyntax,
			Message: fmt.Sprintf("YAML parsing failed: %v", err),
			Location: ast.Location{
				File:   sourcePath,
				Line:   1,
				Column: 1,
			},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	return newBuilder(sourcePath).buildRuleSet(yrs)
}

// ParseDir parses every rule file under dir, in lexical path order.
// Errors from all files are collected into a single ErrorList.
func (p *Parser) ParseDir(dir string) ([]*ast.RuleSet, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if p.hasExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to scan directory: %v", err),
			Location: ast.Location{File: dir},
		}
	}
	sort.Strings(paths)

	all := rulesErrors.NewErrorList()
	ruleSets := make([]*ast.RuleSet, 0, len(paths))
	for _, path := range paths {
		rs, err := p.Parse(path)
		if err != nil {
			collect(all, err)
			continue
		}
		ruleSets = append(ruleSets, rs)
	}

	if all.HasErrors() {
		return nil, all
	}
	return ruleSets, nil
}

func (p *Parser) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range p.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// collect adds err to the list, flattening nested error lists.
func collect(list *rulesErrors.ErrorList, err error) {
	var el *rulesErrors.ErrorList
	if errors.As(err, &el) {
		list.Merge(el)
		return
	}
	var e *rulesErrors.Error
	if errors.As(err, &e) {
		list.Add(e)
		return
	}
	list.AddError(rulesErrors.ErrorTypeIO, err.Error(), ast.Location{})
}
