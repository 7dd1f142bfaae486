package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/wippyai/dynlib"
	"github.com/wippyai/dynlib/config"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to dynlib.toml")
		entry       = flag.String("entry", "", "Config entry naming the libraries to load")
		libs        = flag.String("lib", "", "Libraries to load (comma-separated)")
		backend     = flag.String("backend", "", "Loader backend: native or wasm (overrides config)")
		dirs        = flag.String("dirs", "", "Extra search directories (comma-separated)")
		symbols     = flag.String("sym", "", "Symbols to probe in every loaded library (comma-separated)")
		verbose     = flag.Bool("v", false, "Debug logging")
		printConfig = flag.Bool("print-config", false, "Print the effective configuration and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *backend, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	if *entry == "" && *libs == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: dlreg [-config dynlib.toml] -entry <name> [-sym a,b] [-v]")
		fmt.Fprintln(os.Stderr, "       dlreg -lib libfoo,bar.so [-backend native|wasm] [-dirs d1,d2]")
		fmt.Fprintln(os.Stderr, "       dlreg [-config dynlib.toml] -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
		os.Exit(1)
	}

	dl, err := dynlib.NewFromConfig(context.Background(), cfg, dynlib.WithSearchDirs(splitList(*dirs)...))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(dl, cfg, *entry, splitList(*libs)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(dl, cfg, *entry, splitList(*libs), splitList(*symbols)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, backend string, verbose bool) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if backend != "" {
		cfg.Loader.Backend = backend
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// openRequested loads the config entry first, then the explicit names.
// Failures do not stop the batch.
func openRequested(dl *dynlib.Context, cfg *config.Config, entry string, libs []string) error {
	var errs error
	if entry != "" {
		errs = multierr.Append(errs, dl.OpenEntry(cfg, entry))
	}
	if len(libs) > 0 {
		errs = multierr.Append(errs, dl.Libraries().OpenAll(libs))
	}
	return errs
}

func run(dl *dynlib.Context, cfg *config.Config, entry string, libs, symbols []string) (err error) {
	defer func() {
		err = multierr.Append(err, dl.Close())
	}()

	loadErr := openRequested(dl, cfg, entry, libs)
	for _, e := range multierr.Errors(loadErr) {
		fmt.Printf("failed: %v\n", e)
	}

	fmt.Printf("Platform: %s (%s)\n", dl.Loader().Platform().Name(), dl.Loader().Platform().Ext())
	fmt.Printf("\nLoaded libraries:\n")
	for _, rec := range dl.Libraries().Records() {
		if !rec.Live() {
			continue
		}
		path, _ := dl.Loader().Path(rec.Handle)
		fmt.Printf("  %s => %s\n", rec.Name, path)

		for _, sym := range symbols {
			if !dl.Loader().SymbolExists(rec.Handle, sym) {
				fmt.Printf("    %s: missing\n", sym)
				continue
			}
			addr, _ := dl.Loader().Symbol(rec.Handle, sym)
			fmt.Printf("    %s: %#x\n", sym, addr)
		}
	}

	if loadErr != nil {
		return fmt.Errorf("%d of the requested libraries could not be loaded", len(multierr.Errors(loadErr)))
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
