// Command extract runs one timetable extraction locally and prints the result.
//
//	extract -mosque "East London Mosque" [-save] [-format json|csv] FILE
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/castlemilk/salahtime/backend/internal/config"
	"github.com/castlemilk/salahtime/backend/internal/extraction"
	"github.com/castlemilk/salahtime/backend/internal/extraction/tesseract"
	"github.com/castlemilk/salahtime/backend/internal/store"
)

func main() {
	mosque := flag.String("mosque", "", "mosque name (required with -save)")
	save := flag.Bool("save", false, "save the timetable to the configured store")
	format := flag.String("format", "json", "output format: json or csv")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] FILE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Arg(0), *mosque, *save, *format); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path, mosque string, save bool, format string) error {
	if format != "json" && format != "csv" {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	extCfg := extraction.Config{
		Vision: extraction.NewVisionExtractor(cfg.GeminiAPIKey,
			extraction.WithGeminiModel(cfg.GeminiModel),
			extraction.WithGeminiBaseURL(cfg.GeminiBaseURL),
		),
	}
	switch cfg.OCREngine {
	case config.OCRTesseract:
		extCfg.Recognizer = extraction.NewRecognizer(tesseract.NewFactory(cfg.OCRLanguages...), extraction.NewImageNormalizer())
	case config.OCRRemote:
		extCfg.Recognizer = extraction.NewRecognizer(extraction.NewOCRClient(cfg.OCRServiceURL).EngineFactory(), extraction.NewImageNormalizer())
	}

	if save {
		st, closeStore, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		extCfg.Store = st
	}

	svc := extraction.NewService(extCfg)
	defer svc.Close()

	result, err := svc.Extract(ctx, extraction.Input{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		MosqueName:  mosque,
		UserID:      "cli",
		DryRun:      !save,
	}, func(p extraction.Progress) {
		fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", p.Progress*100, p.Status)
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if result.Empty {
		fmt.Fprintln(os.Stderr, result.Message)
	}

	if format == "csv" {
		out, err := extraction.MarshalCSV(result.Days)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
