package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"example.com/c3dkit/internal/common"
	"example.com/c3dkit/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	cmd := args[0]
	var err error
	switch cmd {
	case "info":
		err = infoCmd(args[1:], stdout, stderr)
	case "params":
		err = paramsCmd(args[1:], stdout, stderr)
	case "dump":
		err = dumpCmd(args[1:], stdout, stderr)
	case "report":
		err = reportCmd(args[1:], stdout, stderr)
	case "batch":
		err = batchCmd(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "c3dctl %s (built %s)\n", version, buildDate)
	case "help", "-h", "--help":
		usage(stdout)
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `c3dctl %s (built %s) <command> [options]

Commands:
  info    --in <file.c3d>
  params  --in <file.c3d> [--group <name>] [--json]
  dump    --in <file.c3d> [--out <frames.ndjson>] [--limit N] [--skip-invalid] [--progress]
  report  --in <file.c3d> [--json <summary.json>] [--pdf <summary.pdf>] [--lang en|tr] [--title <text>]
  batch   --in <dir> --out-dir <dir> [--pdf]
  version

Every command accepts --config <config.yaml>.
`, version, buildDate)
}

var errMissingInput = errors.New("required: --in")

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to configuration file")
	return fs, cfgPath
}

// loadSettings reads the configuration, if any, and routes diagnostics to
// stderr plus a rotating log file. The returned func restores the default
// log output.
func loadSettings(path string, stderr io.Writer) (config.Config, func(), error) {
	noop := func() {}
	if path == "" {
		common.SetOutput(stderr)
		return config.Default(), func() { common.SetOutput(os.Stderr) }, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, noop, fmt.Errorf("load config: %w", err)
	}
	restore, err := setupLogging(cfg, stderr)
	if err != nil {
		return cfg, noop, fmt.Errorf("setup logging: %w", err)
	}
	common.Logf("c3dctl %s: config %s", version, path)
	return cfg, restore, nil
}

func setupLogging(cfg config.Config, stderr io.Writer) (func(), error) {
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logs.Directory, "c3dctl.log"),
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	var out io.Writer = io.MultiWriter(stderr, rotator)
	if cfg.Logs.Quiet {
		out = rotator
	}
	common.SetOutput(out)
	return func() {
		common.SetOutput(os.Stderr)
		rotator.Close()
	}, nil
}

// outputPath places bare file names in dir.
func outputPath(dir, name string) string {
	if name == "" || dir == "" || name == "-" || filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(dir, name)
}
