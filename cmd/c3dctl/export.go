package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"example.com/c3dkit/internal/c3d"
	"example.com/c3dkit/internal/common"
	"example.com/c3dkit/internal/report"
)

func dumpCmd(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("dump", stderr)
	in := fs.String("in", "", "input .c3d")
	out := fs.String("out", "-", "NDJSON output, - for stdout")
	limit := fs.Int("limit", -1, "maximum frames to export (default from config)")
	skipInvalid := fs.Bool("skip-invalid", false, "omit points that were not reconstructed")
	progress := fs.Bool("progress", false, "print progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errMissingInput
	}
	cfg, restore, err := loadSettings(*cfgPath, stderr)
	if err != nil {
		return err
	}
	defer restore()

	opts := report.ExportOptions{
		Limit:       cfg.Dump.Limit,
		SkipInvalid: cfg.Dump.SkipInvalid || *skipInvalid,
		Metrics:     common.NewMetrics(),
	}
	if *limit >= 0 {
		opts.Limit = *limit
	}

	a, err := c3d.Open(*in)
	if err != nil {
		return err
	}
	defer a.Close()
	if st, err := os.Stat(*in); err == nil {
		opts.Metrics.SetTotalBytes(st.Size() - a.Header().DataOffset())
	}

	var w io.Writer = stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	if *progress || cfg.Dump.Progress {
		stop := common.StartProgressPrinter(stderr, opts.Metrics, cfg.Dump.ProgressTick)
		defer stop()
	}
	n, err := report.ExportFrames(bw, a, opts)
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	snap := opts.Metrics.Snapshot()
	common.Logf("dump %s: %d frames, %s, %.0f frames/s, %s/s", *in, n, common.FormatBytes(snap.Bytes), snap.FramesPerSecond(), common.FormatBytes(int64(snap.ThroughputBytesPerSecond())))
	if err != nil {
		return fmt.Errorf("after %d frames: %w", n, err)
	}
	return nil
}

func reportCmd(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("report", stderr)
	in := fs.String("in", "", "input .c3d")
	jsonOut := fs.String("json", "summary.json", "summary JSON output, empty to skip")
	pdfOut := fs.String("pdf", "", "summary PDF output")
	lang := fs.String("lang", "", "report language (en, tr)")
	title := fs.String("title", "", "report title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errMissingInput
	}
	cfg, restore, err := loadSettings(*cfgPath, stderr)
	if err != nil {
		return err
	}
	defer restore()

	langValue := cfg.Report.Lang
	if *lang != "" {
		langValue = *lang
	}
	language, err := report.ParseLanguage(langValue)
	if err != nil {
		return err
	}
	pdfOpts := report.PDFOptions{Title: cfg.Report.Title, Lang: language, QRSize: cfg.Report.QRSize}
	if *title != "" {
		pdfOpts.Title = *title
	}

	s, err := report.SummarizeFile(*in, report.Options{})
	if err != nil {
		return err
	}
	if s.Truncated {
		common.Logf("%s: data section truncated after %d frames", *in, s.FramesRead)
	}
	if *jsonOut != "" {
		path := outputPath(cfg.Report.OutputDir, *jsonOut)
		if err := report.SaveSummaryJSON(s, path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "summary: %s\n", path)
	}
	if *pdfOut != "" {
		path := outputPath(cfg.Report.OutputDir, *pdfOut)
		if err := report.SaveSummaryPDF(s, path, pdfOpts); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "pdf: %s\n", path)
	}
	return nil
}

// batchCmd summarises every .c3d file below a directory. A file that fails
// to decode is logged and skipped; the command fails if any file did.
func batchCmd(args []string, stdout, stderr io.Writer) error {
	flags, cfgPath := newFlagSet("batch", stderr)
	in := flags.String("in", "", "input directory")
	outDir := flags.String("out-dir", "", "output directory")
	withPDF := flags.Bool("pdf", false, "also render PDF reports")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *in == "" || *outDir == "" {
		return errors.New("required: --in and --out-dir")
	}
	cfg, restore, err := loadSettings(*cfgPath, stderr)
	if err != nil {
		return err
	}
	defer restore()
	language, err := report.ParseLanguage(cfg.Report.Lang)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	var files []string
	err = filepath.WalkDir(*in, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".c3d") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range files {
		rel, err := filepath.Rel(*in, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		stem := strings.TrimSuffix(strings.ReplaceAll(rel, string(filepath.Separator), "_"), filepath.Ext(rel))
		s, err := report.SummarizeFile(path, report.Options{})
		if err != nil {
			common.Logf("batch: %s: %v", path, err)
			failed++
			continue
		}
		if err := report.SaveSummaryJSON(s, filepath.Join(*outDir, stem+".json")); err != nil {
			return err
		}
		if *withPDF {
			opts := report.PDFOptions{Title: cfg.Report.Title, Lang: language, QRSize: cfg.Report.QRSize}
			if err := report.SaveSummaryPDF(s, filepath.Join(*outDir, stem+".pdf"), opts); err != nil {
				return err
			}
		}
		fmt.Fprintf(stdout, "%s\t%d frames\n", rel, s.FramesRead)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

