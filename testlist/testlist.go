// Package testlist maps go test package paths onto the module's directory layout.
package testlist

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

var ErrNoModule = errors.New("no go.mod found")

// FindModuleRoot walks up from dir to the first directory containing a go.mod
func FindModuleRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoModule
		}
		dir = parent
	}
}

// ReadModulePath returns the module path declared in root/go.mod
func ReadModulePath(root string) (string, error) {
	goModPath := filepath.Join(root, "go.mod")
	goModContent, err := os.ReadFile(goModPath)
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}

	modFile, err := modfile.Parse(goModPath, goModContent, nil)
	if err != nil {
		return "", fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if modFile.Module == nil || modFile.Module.Mod.Path == "" {
		return "", fmt.Errorf("could not find module name in go.mod")
	}
	return modFile.Module.Mod.Path, nil
}

// FindTestFunctions returns the Test functions declared in pkgDir, mapped to the
// _test.go file declaring them
func FindTestFunctions(pkgDir string) (map[string]string, error) {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package directory: %w", err)
	}

	testFunctions := make(map[string]string)
	fset := token.NewFileSet()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		filePath := filepath.Join(pkgDir, entry.Name())
		f, err := parser.ParseFile(fset, filePath, nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		for _, decl := range f.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Recv != nil {
				continue
			}
			// Those functions have to start with "Test" and not be "TestMain"
			if strings.HasPrefix(funcDecl.Name.Name, "Test") && funcDecl.Name.Name != "TestMain" {
				testFunctions[funcDecl.Name.Name] = filePath
			}
		}
	}

	return testFunctions, nil
}

// Resolver turns go test package import paths into node IDs and source locations.
// A zero module path makes every package resolve to its import path.
type Resolver struct {
	root       string
	modulePath string

	mu    sync.Mutex
	files map[string]map[string]string // import path -> test func -> file
}

// NewResolver reads the module path of root. A root without go.mod is accepted:
// node IDs then fall back to import paths.
func NewResolver(root string) (*Resolver, error) {
	modulePath, err := ReadModulePath(root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return &Resolver{
		root:       root,
		modulePath: modulePath,
		files:      make(map[string]map[string]string),
	}, nil
}

// ModulePath returns the module path, empty when root has no go.mod
func (r *Resolver) ModulePath() string {
	return r.modulePath
}

// PackageDir returns the slash-separated directory of pkg relative to the module
// root. The root package is named after the last element of the module path.
func (r *Resolver) PackageDir(pkg string) string {
	if r.modulePath == "" {
		return pkg
	}
	if pkg == r.modulePath {
		return path.Base(r.modulePath)
	}
	if rel, ok := strings.CutPrefix(pkg, r.modulePath+"/"); ok {
		return rel
	}
	return pkg
}

// NodeID returns the node ID of a test in pkg; an empty test names the package
func (r *Resolver) NodeID(pkg, test string) string {
	return types.NodeID(r.PackageDir(pkg), test)
}

// AbsDir returns the package directory on disk, or "" when pkg is outside the module
func (r *Resolver) AbsDir(pkg string) string {
	if r.modulePath == "" {
		return ""
	}
	if pkg == r.modulePath {
		return r.root
	}
	if rel, ok := strings.CutPrefix(pkg, r.modulePath+"/"); ok {
		return filepath.Join(r.root, filepath.FromSlash(rel))
	}
	return ""
}

// TestFile returns the file declaring the top-level function of test, falling
// back to the package directory, then to the import path.
func (r *Resolver) TestFile(pkg, test string) string {
	dir := r.AbsDir(pkg)
	if dir == "" {
		return pkg
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	funcs, ok := r.files[pkg]
	if !ok {
		var err error
		funcs, err = FindTestFunctions(dir)
		if err != nil {
			funcs = map[string]string{}
		}
		r.files[pkg] = funcs
	}
	if file, ok := funcs[types.TopLevelTest(test)]; ok {
		return file
	}
	return dir
}
