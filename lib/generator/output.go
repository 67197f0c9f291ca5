package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// generateFile writes <source>_hx.go holding Actions() for every component
// declared in source.
func (g *Generator) generateFile(pkgPath, pkgName, source string, comps []*ComponentInfo) error {
	baseName := strings.TrimSuffix(filepath.Base(source), ".go")
	outputFile := filepath.Join(pkgPath, baseName+"_hx.go")

	fmt.Printf("generating %s\n", outputFile)

	if g.opts.DryRun {
		return nil
	}

	code, err := g.renderTemplate(pkgName, comps)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(code)
	if err != nil {
		// Write unformatted for debugging
		if writeErr := os.WriteFile(outputFile+".unformatted", code, 0644); writeErr == nil {
			fmt.Printf("  wrote unformatted code to %s.unformatted for debugging\n", outputFile)
		}
		return fmt.Errorf("format source: %w", err)
	}

	return os.WriteFile(outputFile, formatted, 0644)
}

// renderTemplate renders the generated code template.
func (g *Generator) renderTemplate(pkgName string, comps []*ComponentInfo) ([]byte, error) {
	tmpl, err := template.New("hx").Parse(hxTemplate)
	if err != nil {
		return nil, err
	}

	qualifier := "hxwire."
	if pkgName == "hxwire" {
		qualifier = ""
	}

	data := struct {
		Package    string
		ImportPath string
		Qualifier  string
		Components []*ComponentInfo
	}{
		Package:    pkgName,
		ImportPath: ImportPath,
		Qualifier:  qualifier,
		Components: comps,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

const hxTemplate = `// Code generated by hxwire generate. DO NOT EDIT.

package {{.Package}}
{{if .Qualifier}}
import "{{.ImportPath}}"
{{end}}
{{range .Components}}
// Actions returns the client-callable methods of {{.TypeName}}.
func (c *{{.TypeName}}) Actions() {{$.Qualifier}}Actions {
	return {{$.Qualifier}}Actions{
{{- range .Actions}}
		{{printf "%q" .Name}}: c.{{.Method}},
{{- end}}
	}
}
{{end}}`
