// Command staticlint runs the repository's static analysis suite: the x/tools
// vet passes, staticcheck SA checks, stylecheck ST1000, nilerr,
// forcetypeassert and osexitmain.
//
// Analyzers listed in STATICLINT_DISABLE (comma separated names) are skipped.
package main

import (
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/buildtag"
	"golang.org/x/tools/go/analysis/passes/cgocall"
	"golang.org/x/tools/go/analysis/passes/composite"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilfunc"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shift"
	"golang.org/x/tools/go/analysis/passes/stdmethods"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/tests"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"golang.org/x/tools/go/analysis/passes/unsafeptr"
	"golang.org/x/tools/go/analysis/passes/unusedresult"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/gostaticanalysis/forcetypeassert"
	"github.com/gostaticanalysis/nilerr"

	"github.com/vshulcz/metricsnap/cmd/staticlint/osexitmain"
	"github.com/vshulcz/metricsnap/internal/misc"
)

func main() {
	analyzers := []*analysis.Analyzer{
		assign.Analyzer,
		atomic.Analyzer,
		bools.Analyzer,
		buildtag.Analyzer,
		cgocall.Analyzer,
		composite.Analyzer,
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilfunc.Analyzer,
		printf.Analyzer,
		shift.Analyzer,
		stdmethods.Analyzer,
		structtag.Analyzer,
		tests.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,
		unsafeptr.Analyzer,
		unusedresult.Analyzer,
	}
	analyzers = append(analyzers, pick(staticcheck.Analyzers, "SA")...)
	analyzers = append(analyzers, pick(stylecheck.Analyzers, "ST1000")...)
	analyzers = append(analyzers, nilerr.Analyzer, forcetypeassert.Analyzer, osexitmain.Analyzer)

	multichecker.Main(without(analyzers, splitNames(misc.Getenv("STATICLINT_DISABLE", "")))...)
}

// pick returns the analyzers whose names start with prefix.
func pick(from []*lint.Analyzer, prefix string) []*analysis.Analyzer {
	var out []*analysis.Analyzer
	for _, a := range from {
		if a == nil || a.Analyzer == nil {
			continue
		}
		if strings.HasPrefix(a.Analyzer.Name, prefix) {
			out = append(out, a.Analyzer)
		}
	}
	return out
}

// without drops analyzers named in disabled.
func without(analyzers []*analysis.Analyzer, disabled []string) []*analysis.Analyzer {
	if len(disabled) == 0 {
		return analyzers
	}
	skip := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		skip[name] = struct{}{}
	}
	out := make([]*analysis.Analyzer, 0, len(analyzers))
	for _, a := range analyzers {
		if _, ok := skip[a.Name]; !ok {
			out = append(out, a)
		}
	}
	return out
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
