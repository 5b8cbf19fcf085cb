package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/vshulcz/metricsnap/internal/adapters/monitor/httpjson"
	"github.com/vshulcz/metricsnap/internal/config"
	"github.com/vshulcz/metricsnap/internal/version"
	"github.com/vshulcz/metricsnap/pkg/metricsdiff"
	"github.com/vshulcz/metricsnap/pkg/metricsnap"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `usage: metricsnap <command> [flags]

commands:
  fetch    print the live snapshot of a server
  get      print a snapshot stored on a server
  capture  store the live snapshot on a server under a name
  upload   store a snapshot file on a server under a name
  value    print one metric value
  diff     print the difference of two snapshot files
  version  print build information
`

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"fetch":   runFetch,
	"get":     runGet,
	"capture": runCapture,
	"upload":  runUpload,
	"value":   runValue,
	"diff":    runDiff,
	"version": runVersion,
}

var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return exitUsage
	}
	if err := cmd(ctx, args[1:], stdout, stderr); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			if !errors.Is(err, flag.ErrHelp) {
				fmt.Fprintf(stderr, "metricsnap %s: %v\n", args[0], err)
			}
			return exitUsage
		}
		fmt.Fprintf(stderr, "metricsnap %s: %v\n", args[0], err)
		return exitError
	}
	return exitOK
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func newClient(resolve func() (config.ClientConfig, error)) (*httpjson.Client, error) {
	cfg, err := resolve()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return httpjson.New(cfg.Address, &http.Client{Timeout: cfg.Timeout}, cfg.Key,
		httpjson.WithRoot(cfg.Root),
		httpjson.WithBackoff(cfg.Backoff),
	)
}

func printSnapshot(w io.Writer, s *metricsnap.Snapshot) error {
	data, err := s.ToJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func readSnapshot(path string) (*metricsnap.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := metricsnap.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func requireFlag(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	return nil
}

func runFetch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("fetch", stderr)
	resolve := config.RegisterClientFlags(fs)
	prefix := fs.String("prefix", "", "only paths equal to or under this prefix")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := newClient(resolve)
	if err != nil {
		return err
	}
	s, err := c.Fetch(ctx, *prefix)
	if err != nil {
		return err
	}
	return printSnapshot(stdout, s)
}

func runGet(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("get", stderr)
	resolve := config.RegisterClientFlags(fs)
	name := fs.String("name", "", "stored snapshot name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("name", *name); err != nil {
		return err
	}
	c, err := newClient(resolve)
	if err != nil {
		return err
	}
	s, err := c.Stored(ctx, *name)
	if err != nil {
		return err
	}
	return printSnapshot(stdout, s)
}

func runCapture(ctx context.Context, args []string, _, stderr io.Writer) error {
	fs := newFlagSet("capture", stderr)
	resolve := config.RegisterClientFlags(fs)
	name := fs.String("name", "", "name to store the snapshot under")
	prefix := fs.String("prefix", "", "only paths equal to or under this prefix")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("name", *name); err != nil {
		return err
	}
	c, err := newClient(resolve)
	if err != nil {
		return err
	}
	return c.Capture(ctx, *name, *prefix)
}

func runUpload(ctx context.Context, args []string, _, stderr io.Writer) error {
	fs := newFlagSet("upload", stderr)
	resolve := config.RegisterClientFlags(fs)
	name := fs.String("name", "", "name to store the snapshot under")
	file := fs.String("file", "", "snapshot JSON file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("name", *name); err != nil {
		return err
	}
	if err := requireFlag("file", *file); err != nil {
		return err
	}
	s, err := readSnapshot(*file)
	if err != nil {
		return err
	}
	c, err := newClient(resolve)
	if err != nil {
		return err
	}
	return c.Upload(ctx, *name, s)
}

// runValue queries a local file, a stored capture or the live snapshot, in
// that order of precedence.
func runValue(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("value", stderr)
	resolve := config.RegisterClientFlags(fs)
	path := fs.String("path", "", "metric path")
	labelsOpt := fs.String("labels", "", "exact labels, k=v[,k=v...]")
	noLabels := fs.Bool("no-labels", false, "match only the metric without labels")
	stored := fs.String("snapshot", "", "query a snapshot stored on the server")
	file := fs.String("file", "", "query a snapshot file instead of the server")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("path", *path); err != nil {
		return err
	}

	labelsSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "labels" {
			labelsSet = true
		}
	})
	if labelsSet && *noLabels {
		return fmt.Errorf("%w: -labels and -no-labels are mutually exclusive", errUsage)
	}

	var labels metricsnap.Labels
	switch {
	case *noLabels:
		labels = metricsnap.Labels{}
	case labelsSet:
		l, err := parseLabels(*labelsOpt)
		if err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		labels = l
	}

	var (
		v   int64
		err error
	)
	switch {
	case *file != "":
		var s *metricsnap.Snapshot
		if s, err = readSnapshot(*file); err != nil {
			return err
		}
		v, err = valueAt(s, *path, labels)
	case *stored != "":
		var c *httpjson.Client
		if c, err = newClient(resolve); err != nil {
			return err
		}
		v, err = c.ValueAt(ctx, *stored, *path, labels)
	default:
		var c *httpjson.Client
		if c, err = newClient(resolve); err != nil {
			return err
		}
		var s *metricsnap.Snapshot
		if s, err = c.Fetch(ctx, ""); err != nil {
			return err
		}
		v, err = valueAt(s, *path, labels)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, v)
	return err
}

func valueAt(s *metricsnap.Snapshot, path string, labels metricsnap.Labels) (int64, error) {
	if labels == nil {
		return s.ValueAtPath(path)
	}
	return s.ValueAt(path, labels)
}

func runDiff(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("diff", stderr)
	before := fs.String("before", "", "snapshot file taken first")
	after := fs.String("after", "", "snapshot file taken last")
	prefix := fs.String("prefix", "", "only paths under this prefix, stripped from the output")
	diffGauge := fs.Bool("diff-gauge", false, "subtract gauges too")
	gauges := fs.String("gauges", "", "comma separated gauge paths")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag("before", *before); err != nil {
		return err
	}
	if err := requireFlag("after", *after); err != nil {
		return err
	}

	b, err := readSnapshot(*before)
	if err != nil {
		return err
	}
	a, err := readSnapshot(*after)
	if err != nil {
		return err
	}
	d, err := metricsdiff.Diff(b, a, metricsdiff.Options{
		Prefix:    strings.TrimSpace(*prefix),
		DiffGauge: *diffGauge,
		IsGauge:   metricsdiff.GaugePaths(splitList(*gauges)...),
	})
	if err != nil {
		return err
	}
	return printSnapshot(stdout, d)
}

func runVersion(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if err := parse(newFlagSet("version", stderr), args); err != nil {
		return err
	}
	return version.Write(stdout)
}

// parseLabels reads "k=v,k=v". An empty string means no labels.
func parseLabels(s string) (metricsnap.Labels, error) {
	labels := metricsnap.Labels{}
	for _, pair := range splitList(s) {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("bad label %q, want key=value", pair)
		}
		if _, dup := labels[k]; dup {
			return nil, fmt.Errorf("duplicate label %q", k)
		}
		labels[k] = strings.TrimSpace(v)
	}
	return labels, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
