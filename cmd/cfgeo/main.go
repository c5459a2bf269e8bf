// Command cfgeo normalizes CRS, transform and bounds descriptions and
// attaches CF grid mappings to CF-JSON datasets.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pspoerri/cfgeo/internal/config"
	"github.com/pspoerri/cfgeo/internal/convert"
	"github.com/pspoerri/cfgeo/internal/convert/h3ext"
	"github.com/pspoerri/cfgeo/internal/logger"
	"github.com/pspoerri/cfgeo/internal/metrics"
	"github.com/pspoerri/cfgeo/internal/projection"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// errNotGeoreferenced makes check exit with status 1 without an error message.
var errNotGeoreferenced = errors.New("not georeferenced")

// app is the state shared by all subcommands.
type app struct {
	env    config.Config
	stdout io.Writer
	stderr io.Writer

	logLevel    string
	logConsole  bool
	withMetrics bool

	log  zerolog.Logger
	svc  *projection.Default
	conv *convert.Converter
	reg  *prometheus.Registry
}

func main() {
	a := &app{env: config.FromEnv(), stdout: os.Stdout, stderr: os.Stderr}
	err := a.rootCmd().Execute()
	a.dumpMetrics()
	if err != nil {
		if !errors.Is(err, errNotGeoreferenced) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if hint := errors.FlattenHints(err); hint != "" {
				fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
			}
		}
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cfgeo",
		Short:         "Normalize georeferencing and write CF grid mappings",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", a.env.LogLevel, "Log level: debug, info, warn, error")
	pf.BoolVar(&a.logConsole, "log-console", a.env.LogConsole, "Human-readable log output")
	pf.BoolVar(&a.withMetrics, "metrics", false, "Print conversion counters to stderr on exit")

	root.AddCommand(a.crsCmd(), a.inspectCmd(), a.georefCmd(), a.checkCmd(), a.bboxCmd())
	return root
}

func (a *app) setup() error {
	a.log = logger.Build(logger.Config{Level: a.logLevel, Console: a.logConsole, Component: "cfgeo"}, a.stderr)
	a.svc = projection.New(projection.WithLogger(a.log))

	opts := []convert.Option{
		convert.WithLogger(a.log),
		convert.WithCacheSize(a.env.CRSCacheSize),
	}
	if a.withMetrics {
		a.reg = prometheus.NewRegistry()
		opts = append(opts, convert.WithMetrics(metrics.New(a.reg)))
	}
	conv, err := convert.New(a.svc, opts...)
	if err != nil {
		return err
	}
	h3ext.Register(conv)
	a.conv = conv
	return nil
}

// dumpMetrics prints every non-zero counter as "name{labels} value".
func (a *app) dumpMetrics() {
	if a.reg == nil {
		return
	}
	families, err := a.reg.Gather()
	if err != nil {
		a.log.Warn().Err(err).Msg("gathering metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(a.stderr, "%s %g\n", name, v)
		}
	}
}
