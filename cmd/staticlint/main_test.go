package main

import (
	"testing"

	"golang.org/x/tools/go/analysis"
	"honnef.co/go/tools/analysis/lint"
)

func names(as []*analysis.Analyzer) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPick(t *testing.T) {
	from := []*lint.Analyzer{
		{Analyzer: &analysis.Analyzer{Name: "SA1000"}},
		nil,
		{Analyzer: nil},
		{Analyzer: &analysis.Analyzer{Name: "ST1000"}},
		{Analyzer: &analysis.Analyzer{Name: "SA4006"}},
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{prefix: "SA", want: []string{"SA1000", "SA4006"}},
		{prefix: "ST1000", want: []string{"ST1000"}},
		{prefix: "QF", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if got := names(pick(from, tt.prefix)); !equalNames(got, tt.want) {
				t.Errorf("pick(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestWithout(t *testing.T) {
	all := []*analysis.Analyzer{{Name: "printf"}, {Name: "nilerr"}, {Name: "osexitmain"}}

	tests := []struct {
		name     string
		disabled []string
		want     []string
	}{
		{name: "nothing disabled", disabled: nil, want: []string{"printf", "nilerr", "osexitmain"}},
		{name: "one disabled", disabled: []string{"nilerr"}, want: []string{"printf", "osexitmain"}},
		{name: "unknown name", disabled: []string{"bogus"}, want: []string{"printf", "nilerr", "osexitmain"}},
		{name: "all disabled", disabled: []string{"printf", "nilerr", "osexitmain"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := names(without(all, tt.disabled)); !equalNames(got, tt.want) {
				t.Errorf("without(%v) = %v, want %v", tt.disabled, got, tt.want)
			}
		})
	}
}

func TestSplitNames(t *testing.T) {
	got := splitNames(" SA1000, ,nilerr,")
	if !equalNames(got, []string{"SA1000", "nilerr"}) {
		t.Fatalf("splitNames = %v", got)
	}
	if got := splitNames(""); len(got) != 0 {
		t.Fatalf("splitNames(\"\") = %v", got)
	}
}
