// Command graphconvert converts delimited edge lists into the binary formats
// loaded by the engine.
//
//	graphconvert -i edges.csv -o /data/graph/ -t csr_bin -tobin -cores 8
package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanonone/minigraph/pkg/convert"
	"github.com/sanonone/minigraph/pkg/graph"
)

func main() {
	defaults := convert.DefaultOptions()

	input := flag.String("i", "", "Input edge list (CSV file, or dump directory with -frombin)")
	output := flag.String("o", "", "Output directory")
	cores := flag.Int("cores", defaults.Cores, "Worker goroutines and, for csr_bin, number of fragments")
	typ := flag.String("t", defaults.Type, "Output type: edgelist_bin or csr_bin")
	sep := flag.String("sep", defaults.Separator, "Column separator of the input file")
	toBin := flag.Bool("tobin", defaults.ToBin, "Run the conversion")
	fromBin := flag.Bool("frombin", defaults.FromBin, "Read the input as a binary edge-list dump")
	rf := flag.Int("rf", defaults.ReplicationFactor, "Replication factor: 1 (out-edges) or 2 (out- and in-edges)")
	configPath := flag.String("config", "", "YAML configuration file; flags given on the command line take precedence")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts, err := convert.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Cannot load configuration", "path", *configPath, "error", err)
		os.Exit(2)
	}

	// Only flags set explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			opts.Input = *input
		case "o":
			opts.Output = *output
		case "cores":
			opts.Cores = *cores
		case "t":
			opts.Type = *typ
		case "sep":
			opts.Separator = *sep
		case "tobin":
			opts.ToBin = *toBin
		case "frombin":
			opts.FromBin = *fromBin
		case "rf":
			opts.ReplicationFactor = *rf
		}
	})

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				slog.Warn("Metrics endpoint stopped", "addr", *metricsAddr, "error", err)
			}
		}()
	}

	rep, err := convert.Run(opts)
	if err != nil {
		slog.Error("Conversion failed", "error", err)
		if errors.Is(err, graph.ErrConfiguration) {
			flag.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
	slog.Info("Done", "run_id", rep.RunID.String(), "elapsed", rep.Duration)
}
