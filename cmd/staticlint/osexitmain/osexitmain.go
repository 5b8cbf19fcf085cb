// Package osexitmain reports direct os.Exit calls in main.main. Deferred
// calls are skipped by os.Exit, so binaries return an exit code from a helper
// instead.
package osexitmain

import (
	"errors"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the osexitmain analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "osexitmain",
	Doc:      "reports direct os.Exit calls in main.main",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, errors.New("inspect result is not an *inspector.Inspector")
	}

	generated := make(map[*ast.File]bool, len(pass.Files))
	for _, f := range pass.Files {
		generated[f] = ast.IsGenerated(f)
	}

	insp.WithStack([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return false
		}
		if f, ok := stack[0].(*ast.File); ok && generated[f] {
			return false
		}
		fd, ok := n.(*ast.FuncDecl)
		if !ok || fd.Recv != nil || fd.Name.Name != "main" || fd.Body == nil {
			return false
		}
		ast.Inspect(fd.Body, func(nn ast.Node) bool {
			switch x := nn.(type) {
			case *ast.FuncLit:
				return false
			case *ast.CallExpr:
				if isOsExit(pass.TypesInfo, x) {
					pass.Reportf(x.Pos(), "direct os.Exit call in main.main; return an exit code from a helper instead")
				}
			}
			return true
		})
		return false
	})

	return nil, nil
}

func isOsExit(info *types.Info, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	fn, ok := info.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}
	return fn.Pkg().Path() == "os" && fn.Name() == "Exit"
}
