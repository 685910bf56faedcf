package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/dgallion1/legistruct/internal/chunker"
	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/parser"
	"github.com/dgallion1/legistruct/internal/pipeline"
	"github.com/dgallion1/legistruct/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Recover the structure of legal code documents",
		Long: `Parse one or more documents and export their structure.

Each document is written under documents/<doc-id>/ in the output directory or
bucket, where <doc-id> is the file name without its extension.

Example:
  legistruct parse cgi.pdf --out ./out
  legistruct parse *.docx --shape flat --concurrency 8
  legistruct parse cgi.pdf --s3-bucket codes --s3-prefix fr`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			rulesPath, _ := cmd.Flags().GetString("rules")
			shape, _ := cmd.Flags().GetString("shape")
			articles, _ := cmd.Flags().GetBool("articles")
			chunks, _ := cmd.Flags().GetBool("chunks")
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")
			chunkOverlap, _ := cmd.Flags().GetInt("chunk-overlap")
			diagnostics, _ := cmd.Flags().GetBool("diagnostics")
			pdfBackend, _ := cmd.Flags().GetString("pdf-backend")
			pdftotext, _ := cmd.Flags().GetBool("pdftotext")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			keepGoing, _ := cmd.Flags().GetBool("keep-going")
			dedup, _ := cmd.Flags().GetBool("dedup")
			s3Bucket, _ := cmd.Flags().GetString("s3-bucket")
			s3Prefix, _ := cmd.Flags().GetString("s3-prefix")
			s3Region, _ := cmd.Flags().GetString("s3-region")
			s3Endpoint, _ := cmd.Flags().GetString("s3-endpoint")

			log := newLogger(cmd)

			exportOpts := pipeline.ExportOptions{
				Articles:    articles,
				Chunks:      chunks,
				Diagnostics: diagnostics,
			}
			switch shape {
			case "nested":
				exportOpts.Nested = true
			case "flat":
				exportOpts.Flat = true
			case "both":
				exportOpts.Nested, exportOpts.Flat = true, true
			default:
				return fmt.Errorf("--shape must be nested, flat or both, got %q", shape)
			}
			switch pdfBackend {
			case parser.BackendText, parser.BackendLayout:
			default:
				return fmt.Errorf("--pdf-backend must be text or layout, got %q", pdfBackend)
			}
			if chunkOverlap >= chunkSize {
				return fmt.Errorf("--chunk-overlap (%d) must be smaller than --chunk-size (%d)", chunkOverlap, chunkSize)
			}
			if concurrency < 1 {
				concurrency = 1
			}

			rules, err := config.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			exportOpts.Policy = rules.Policy()
			exportOpts.Chunk = chunker.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				MinChunk:     chunker.DefaultConfig().MinChunk,
			}

			storeOpts := storage.Options{Adapter: "local", LocalPath: out}
			if s3Bucket != "" {
				storeOpts = storage.Options{
					Adapter: "s3",
					S3: storage.S3Options{
						Endpoint:        s3Endpoint,
						Region:          s3Region,
						Bucket:          s3Bucket,
						Prefix:          s3Prefix,
						AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
						SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
						UseSSL:          true,
					},
				}
			}
			store, err := storage.NewAdapter(storeOpts)
			if err != nil {
				return fmt.Errorf("storage: %w", err)
			}
			defer store.Close()

			dp, err := pipeline.NewDocParser(rules, log)
			if err != nil {
				return err
			}
			w := pipeline.NewWorker(dp, store, nil, log, pipeline.WorkerOptions{
				Parse: parser.Options{
					PDFBackend:            pdfBackend,
					FallbackPdftotext:     pdftotext,
					ExcludeHeadersFooters: true,
				},
				Export: exportOpts,
				Dedup:  dedup,
			})

			return parseFiles(cmd, w, args, concurrency, keepGoing)
		},
	}

	cmd.Flags().StringP("out", "o", "./out", "Output directory")
	cmd.Flags().String("shape", "both", "Structure shape to write (nested, flat, both)")
	cmd.Flags().Bool("articles", true, "Write one text file per article")
	cmd.Flags().Bool("chunks", false, "Write retrieval chunks (JSON lines)")
	cmd.Flags().Int("chunk-size", chunker.DefaultConfig().ChunkSize, "Chunk size in tokens")
	cmd.Flags().Int("chunk-overlap", chunker.DefaultConfig().ChunkOverlap, "Chunk overlap in tokens")
	cmd.Flags().Bool("diagnostics", true, "Write parsing diagnostics")
	cmd.Flags().String("pdf-backend", parser.BackendText, "PDF backend (text, layout)")
	cmd.Flags().Bool("pdftotext", true, "Fall back to pdftotext when the PDF backend fails")
	cmd.Flags().IntP("concurrency", "j", 4, "Documents parsed in parallel")
	cmd.Flags().Bool("keep-going", false, "Continue with the remaining documents after a failure")
	cmd.Flags().Bool("dedup", false, "Skip export of documents already exported under another id")

	// S3 output
	cmd.Flags().String("s3-bucket", "", "Write to this S3 bucket instead of --out")
	cmd.Flags().String("s3-prefix", "", "Key prefix inside the bucket")
	cmd.Flags().String("s3-region", "us-east-1", "S3 region")
	cmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint URL")

	return cmd
}

// parseFiles processes each file as one job, concurrency at a time. Without
// keepGoing the first failed document cancels those not yet started.
func parseFiles(cmd *cobra.Command, w *pipeline.Worker, files []string, concurrency int, keepGoing bool) error {
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency)

	var (
		mu     sync.Mutex
		failed []string
	)
	stdout := cmd.OutOrStdout()

	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			snap, err := parseFile(ctx, w, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, file)
				fmt.Fprintf(stdout, "%s: %v\n", file, err)
				if keepGoing {
					return nil
				}
				return err
			}
			fmt.Fprintln(stdout, summary(file, snap))
			if snap.Status == pipeline.StatusFailed || snap.Status == pipeline.StatusPartial {
				failed = append(failed, file)
				if !keepGoing {
					return fmt.Errorf("%s: %s", file, strings.Join(snap.Progress.Errors, "; "))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(failed), len(files))
	}
	return nil
}

func parseFile(ctx context.Context, w *pipeline.Worker, file string) (pipeline.JobSnapshot, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return pipeline.JobSnapshot{}, fmt.Errorf("read: %w", err)
	}
	job := pipeline.NewJob(filepath.Base(file), "", docIDFor(file), data)
	w.Process(ctx, job)
	return job.Snapshot(), nil
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// docIDFor derives a storage-safe document id from a file name.
func docIDFor(file string) string {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	id := strings.Trim(unsafeIDChars.ReplaceAllString(base, "_"), "_.-")
	if id == "" {
		return pipeline.NewID()
	}
	return id
}

func summary(file string, snap pipeline.JobSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %d articles, %d diagnostics, %d files -> %s",
		file, snap.Status, snap.Progress.Articles, snap.Progress.Diagnostics,
		snap.Progress.FilesWritten, pipeline.DocumentPrefix(snap.DocID))
	if snap.DuplicateOf != "" {
		fmt.Fprintf(&b, " (duplicate of %s)", snap.DuplicateOf)
	}
	if len(snap.Progress.Errors) > 0 {
		fmt.Fprintf(&b, "\n  errors: %s", strings.Join(snap.Progress.Errors, "; "))
	}
	return b.String()
}
