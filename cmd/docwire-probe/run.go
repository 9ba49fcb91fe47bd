package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/docwire/docwire-go/container"
	"github.com/docwire/docwire-go/datasource"
	"github.com/docwire/docwire-go/detect"
	"github.com/docwire/docwire-go/docerr"
	"github.com/docwire/docwire-go/filter"
	"github.com/docwire/docwire-go/input"
	"github.com/docwire/docwire-go/message"
	"github.com/docwire/docwire-go/output"
	"github.com/docwire/docwire-go/pipeconfig"
	"github.com/docwire/docwire-go/pipelog"
	"github.com/docwire/docwire-go/pipeline"
	"github.com/docwire/docwire-go/resource"
	"github.com/docwire/docwire-go/writer"
)

var (
	inputPath  string
	outputDir  string
	configPath string
	format     string
	maxEntries int

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "detect, unpack and emit the leaf entries of a file",
		Run:   run,
	}
)

func init() {
	runCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "",
		"path to the file to ingest")
	runCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", ".",
		"directory entries are written to")
	runCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a pipeline configuration JSON file")
	runCmd.PersistentFlags().StringVarP(&format, "format", "f", "raw",
		`how each leaf entry is written: "raw" (copy its bytes unchanged) or
"metadata" (the six-line metadata block writer renders for it)`)
	runCmd.PersistentFlags().IntVar(&maxEntries, "max-entries", 0,
		"stop after this many leaf entries have been written (0 means unlimited)")
	rootCmd.AddCommand(runCmd)
}

// detectStage runs bundle against every data_source message and
// forwards it unchanged; detect.Bundle is not a pipeline.Stage, so
// this is the adapter between the two.
func detectStage(bundle *detect.Bundle) pipeline.Stage {
	return pipeline.StageFunc(func(msg message.Message, emit pipeline.Emit) (pipeline.Continuation, error) {
		if msg.Kind == message.KindDataSource {
			if err := bundle.Run(msg.Source); err != nil {
				return pipeline.Proceed, err
			}
		}
		return pipeline.Proceed, emit(msg)
	})
}

// extensionTable resolves the extension->MIME table for this run: the
// built-in default, optionally overlaid with an "extensions.json"
// resource file found via resource.Resolver. A missing or unreadable
// override is not an error, it just means the default table is used
// untouched.
func extensionTable() detect.ExtensionTable {
	resolver, err := resource.NewResolver()
	if err != nil || !resolver.Exists("extensions.json") {
		return detect.DefaultExtensionTable
	}
	overlay, err := detect.LoadExtensionTable(resolver.Path("extensions.json"))
	if err != nil {
		return detect.DefaultExtensionTable
	}
	return detect.MergeExtensionTables(detect.DefaultExtensionTable, overlay)
}

// buildBundle assembles the standard detector bundle plus the
// refiners, sharing one lru-backed zip-entry scan across the
// zip-probing ones (detect.CachedEntryNames) so probing the same data
// source for several refiners doesn't re-parse its zip layout each
// time.
func buildBundle(cfg *pipeconfig.PipelineConfig) *detect.Bundle {
	entryNames := detect.CachedEntryNames(detect.ZipEntryNames, cfg.LRUCacheCapacity)
	return detect.StandardBundle(extensionTable(), detect.DefaultSignatureTable,
		detect.IWorkRefiner(entryNames),
		detect.XLSBRefiner(entryNames),
		detect.ODFOOXMLRefiner(entryNames),
		detect.MailRefiner(),
		detect.HTMLvsXMLRefiner(),
	)
}

// writeViaOutput drives content through output.ToWriter against a
// freshly created file, the same terminal leaf the library itself
// uses to flush a chain's bytes to disk.
func writeViaOutput(content []byte, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	stage := output.ToWriter(f)
	boxed := datasource.FromBuffer(content)
	_, err = stage.Process(message.FromDataSource(boxed), func(message.Message) error { return nil })
	return err
}

// renderMetadataBlock drives a bare Document/CloseDocument pair through
// a fresh writer.Metadata instance and returns the six-line block it
// renders. No content parser populates msg.MetaThunk here, so every
// field comes back "unidentified".
func renderMetadataBlock() ([]byte, error) {
	mw := writer.NewMetadata()
	noop := func(message.Message) error { return nil }
	if _, err := mw.Process(message.Document(nil), noop); err != nil {
		return nil, err
	}
	var block []byte
	capture := func(m message.Message) error {
		if m.Kind == message.KindDataSource {
			span, err := m.Source.Span(0)
			if err != nil {
				return err
			}
			block = span
		}
		return nil
	}
	if _, err := mw.Process(message.CloseDocument(), capture); err != nil {
		return nil, err
	}
	return block, nil
}

// runPipeline composes input/detect/container/an optional entry-count
// filter/a leaf writer and drives one file through to completion,
// returning the number of leaf entries written. Kept separate from
// run() so it can be exercised without cobra or log.Fatal in the way.
func runPipeline(log pipelog.Logger, inputPath, outputDir string, cfg *pipeconfig.PipelineConfig) (int, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, err
	}

	bundle := buildBundle(cfg)
	unpacker := container.New(func(ds *datasource.DataSource) error {
		return bundle.Run(ds)
	}).WithLog(log)

	count := 0
	writeEntry := pipeline.LeafFunc(func(msg message.Message, _ pipeline.Emit) (pipeline.Continuation, error) {
		switch msg.Kind {
		case message.KindException:
			// Per-message errors are non-fatal: report and keep flowing.
			log.Warn("[WARNING] " + docerr.Diagnostic(msg.Err))
			return pipeline.Proceed, nil
		case message.KindDataSource:
			// falls through below
		default:
			return pipeline.Proceed, nil
		}
		count++
		mt, confidence, ok := msg.Source.HighestConfidenceMimeType()
		mime := "unknown"
		if ok {
			mime = fmt.Sprintf("%s (%s)", mt, confidence)
		}
		ext, _ := msg.Source.FileExtension()

		var content []byte
		var err error
		if format == "metadata" {
			ext = ".txt"
			content, err = renderMetadataBlock()
		} else {
			content, err = msg.Source.Span(int(cfg.MaxArchiveEntryBytes))
		}
		if err != nil {
			return pipeline.Proceed, err
		}

		name := fmt.Sprintf("entry-%03d%s", count, ext)
		dst := filepath.Join(outputDir, name)
		if err := writeViaOutput(content, dst); err != nil {
			return pipeline.Proceed, err
		}
		log.Fields("entry", dst, "mime", mime, "bytes", len(content), "provenance", string(msg.Source.Provenance())).
			Info("wrote entry")
		return pipeline.Proceed, nil
	})

	chain := pipeline.NewChain(input.FromPath(inputPath)).
		Then(detectStage(bundle)).
		Then(unpacker)
	if maxEntries > 0 {
		// Stops the run once maxEntries messages have reached this
		// point in the chain.
		chain = chain.Then(filter.NewMaxEventCount(maxEntries))
	}
	chain = chain.Then(writeEntry)

	if err := chain.Run(message.Message{Kind: message.KindStartProcessing}); err != nil {
		return count, err
	}
	return count, nil
}

func run(cmd *cobra.Command, args []string) {
	log := pipelog.Get("stderr").Fields("component", "docwire-probe")
	if inputPath == "" {
		logrus.Fatal("--input is required")
	}

	cfg := &pipeconfig.PipelineConfig{}
	if configPath != "" {
		loaded, err := pipeconfig.Load(configPath)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	} else {
		cfg.ConfigureDefaults()
	}

	count, err := runPipeline(log, inputPath, outputDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %s processing file %s\n", docerr.Diagnostic(err), inputPath)
		os.Exit(2)
	}
	log.Fields("entries", count).Info("done")
}
