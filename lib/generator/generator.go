package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ImportPath is the package components embed Base from.
const ImportPath = "github.com/pthm/hxwire"

// directive marks a method as client-callable:
//
//	//hxwire:action
//	//hxwire:action save-draft
const directive = "//hxwire:action"

// Options configures the generator.
type Options struct {
	DryRun bool
}

// Generator writes Actions() methods for hxwire components.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			base := d.Name()
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if isSource(entry.Name()) {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

func isSource(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasSuffix(name, "_hx.go")
}

// generatePackage generates code for a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		return isSource(info.Name())
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		for source, comps := range groupBySource(g.findComponents(pkg)) {
			if err := g.generateFile(pkgPath, pkgName, source, comps); err != nil {
				return err
			}
		}
	}

	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_hx.go") {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		fmt.Printf("removing %s\n", path)
		if !g.opts.DryRun {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// ComponentInfo holds information about a discovered component.
type ComponentInfo struct {
	SourceFile string
	TypeName   string
	Actions    []ActionInfo
}

// ActionInfo is one //hxwire:action method.
type ActionInfo struct {
	Name   string // wire name, e.g. "saveDraft"
	Method string // Go method, e.g. "SaveDraft"
}

// findComponents finds every struct embedding hxwire.Base that declares at
// least one action and does not write Actions() by hand.
func (g *Generator) findComponents(pkg *ast.Package) []*ComponentInfo {
	byType := make(map[string]*ComponentInfo)
	manual := make(map[string]bool)

	for filename, file := range pkg.Files {
		alias := importName(file, pkg.Name)
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}
			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				structType, ok := typeSpec.Type.(*ast.StructType)
				if !ok || !embedsBase(structType, alias) {
					continue
				}
				byType[typeSpec.Name.Name] = &ComponentInfo{
					SourceFile: filename,
					TypeName:   typeSpec.Name.Name,
				}
			}
		}
	}

	for _, file := range pkg.Files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) != 1 {
				continue
			}
			recv := receiverName(fn.Recv.List[0].Type)
			comp, ok := byType[recv]
			if !ok {
				continue
			}
			if fn.Name.Name == "Actions" {
				manual[recv] = true
				continue
			}
			if name, ok := parseDirective(fn.Doc, fn.Name.Name); ok {
				comp.Actions = append(comp.Actions, ActionInfo{Name: name, Method: fn.Name.Name})
			}
		}
	}

	var components []*ComponentInfo
	for name, comp := range byType {
		if manual[name] || len(comp.Actions) == 0 {
			continue
		}
		sort.Slice(comp.Actions, func(i, j int) bool { return comp.Actions[i].Name < comp.Actions[j].Name })
		components = append(components, comp)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].TypeName < components[j].TypeName })
	return components
}

func groupBySource(comps []*ComponentInfo) map[string][]*ComponentInfo {
	out := make(map[string][]*ComponentInfo)
	for _, c := range comps {
		out[c.SourceFile] = append(out[c.SourceFile], c)
	}
	return out
}

// importName returns the identifier file uses for ImportPath. Inside the
// hxwire package itself Base is referenced unqualified, signalled by "".
func importName(file *ast.File, pkgName string) string {
	if pkgName == "hxwire" {
		return ""
	}
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != ImportPath {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return "hxwire"
	}
	return "hxwire"
}

// embedsBase reports whether a struct embeds Base or *Base from hxwire.
func embedsBase(st *ast.StructType, alias string) bool {
	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}
		expr := field.Type
		if star, ok := expr.(*ast.StarExpr); ok {
			expr = star.X
		}
		switch x := expr.(type) {
		case *ast.SelectorExpr:
			if id, ok := x.X.(*ast.Ident); ok && alias != "" && id.Name == alias && x.Sel.Name == "Base" {
				return true
			}
		case *ast.Ident:
			if alias == "" && x.Name == "Base" {
				return true
			}
		}
	}
	return false
}

func receiverName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// parseDirective looks for //hxwire:action in a method's doc comment. The
// wire name defaults to the method name with a lowered first letter.
func parseDirective(doc *ast.CommentGroup, method string) (string, bool) {
	if doc == nil || !ast.IsExported(method) {
		return "", false
	}
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, directive)
		if !ok {
			continue
		}
		if rest != "" && !unicode.IsSpace(rune(rest[0])) {
			continue
		}
		if name := strings.TrimSpace(rest); name != "" {
			return name, true
		}
		return lowerFirst(method), true
	}
	return "", false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
