package starlark

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// ModulesDir is the directory under the rules directory that holds shared
// script helpers.
const ModulesDir = "lib"

// Module is a helper file loaded from the modules directory. Scripts reach
// its exports through a struct named after the file, e.g. apa.is_heading()
// for apa.star.
type Module struct {
	Namespace string
	Path      string
	Exports   starlark.StringDict
	Functions []*Function
}

// Function describes one exported function of a module.
type Function struct {
	Name      string   `json:"name"`
	Args      []string `json:"args"`
	Docstring string   `json:"docstring,omitempty"`
	Line      int      `json:"line"`
}

// Signature returns a human-readable signature for a function.
func (f *Function) Signature() string {
	return f.Name + "(" + strings.Join(f.Args, ", ") + ")"
}

// ModuleError reports a helper file that could not be loaded.
type ModuleError struct {
	File    string
	Message string
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%s/%s: %s", ModulesDir, filepath.Base(e.File), e.Message)
}

// LoadModules loads every *.star file in dir, sorted by name. A missing
// directory yields no modules.
func LoadModules(dir string) ([]*Module, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access modules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("modules path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan modules directory: %w", err)
	}
	sort.Strings(files)

	modules := make([]*Module, 0, len(files))
	for _, file := range files {
		m, err := loadModule(file)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

func loadModule(path string) (*Module, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob of the modules directory
	if err != nil {
		return nil, &ModuleError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	namespace := strings.TrimSuffix(filepath.Base(path), ".star")
	if err := validateNamespace(namespace); err != nil {
		return nil, &ModuleError{File: path, Message: err.Error()}
	}

	functions, err := parseFunctions(path, content)
	if err != nil {
		return nil, &ModuleError{File: path, Message: err.Error()}
	}

	thread := &starlark.Thread{
		Name:  "load:" + namespace,
		Print: func(*starlark.Thread, string) {},
	}
	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, content, nil)
	if err != nil {
		return nil, &ModuleError{File: path, Message: fmt.Sprintf("execution error: %v", err)}
	}

	exports := make(starlark.StringDict)
	for name, value := range globals {
		if !strings.HasPrefix(name, "_") {
			exports[name] = value
		}
	}
	// Modules are shared by concurrent script threads.
	exports.Freeze()

	return &Module{Namespace: namespace, Path: path, Exports: exports, Functions: functions}, nil
}

// validateNamespace checks that name is a Starlark identifier and does not
// shadow a script builtin.
func validateNamespace(name string) error {
	if name == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	for i, r := range name {
		if i == 0 && !isLetter(r) && r != '_' {
			return fmt.Errorf("namespace must start with letter or underscore: %s", name)
		}
		if !isLetter(r) && !isDigit(r) && r != '_' {
			return fmt.Errorf("namespace contains invalid character: %s", name)
		}
	}
	if reservedNames[name] {
		return fmt.Errorf("namespace %q shadows a builtin", name)
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// parseFunctions statically extracts the exported function signatures.
func parseFunctions(filename string, content []byte) ([]*Function, error) {
	f, err := syntax.Parse(filename, content, 0)
	if err != nil {
		return nil, err
	}

	var out []*Function
	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || strings.HasPrefix(def.Name.Name, "_") {
			continue
		}
		out = append(out, &Function{
			Name:      def.Name.Name,
			Args:      extractArgs(def.Params),
			Docstring: extractDocstring(def.Body),
			Line:      int(def.Name.NamePos.Line),
		})
	}
	return out, nil
}

func extractArgs(params []syntax.Expr) []string {
	args := []string{}
	for _, param := range params {
		switch p := param.(type) {
		case *syntax.Ident:
			args = append(args, p.Name)
		case *syntax.BinaryExpr:
			if ident, ok := p.X.(*syntax.Ident); ok && p.Op == syntax.EQ {
				args = append(args, ident.Name+"="+exprToString(p.Y))
			}
		case *syntax.UnaryExpr:
			if ident, ok := p.X.(*syntax.Ident); ok {
				prefix := "*"
				if p.Op == syntax.STARSTAR {
					prefix = "**"
				}
				args = append(args, prefix+ident.Name)
			}
		}
	}
	return args
}

func extractDocstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	exprStmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := exprStmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	s, _ := lit.Value.(string)
	return strings.TrimSpace(s)
}

func exprToString(expr syntax.Expr) string {
	switch e := expr.(type) {
	case *syntax.Literal:
		return e.Raw
	case *syntax.Ident:
		return e.Name
	case *syntax.ListExpr:
		return "[]"
	case *syntax.DictExpr:
		return "{}"
	case *syntax.TupleExpr:
		return "()"
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			return "-" + exprToString(e.X)
		}
		return exprToString(e.X)
	default:
		return "..."
	}
}

// moduleValues exposes each module as a struct named after its namespace.
func moduleValues(modules []*Module) starlark.StringDict {
	out := make(starlark.StringDict, len(modules))
	for _, m := range modules {
		out[m.Namespace] = starlarkstruct.FromStringDict(starlark.String(m.Namespace), m.Exports)
	}
	return out
}
