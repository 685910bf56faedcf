package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dgallion1/legistruct/internal/classify"
	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/normalize"
	"github.com/dgallion1/legistruct/internal/parser"
	"github.com/dgallion1/legistruct/internal/pipeline"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print every line of a document with its classification",
		Long: `Print the lines that reach the structure builder, after noise filtering,
with page, style and heading classification. Useful to tune a rules file.

Columns: line, page, style (E emphasized, B bold, ? unknown), kind,
confidence, accepted flag, article id and text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesPath, _ := cmd.Flags().GetString("rules")
			pdfBackend, _ := cmd.Flags().GetString("pdf-backend")
			all, _ := cmd.Flags().GetBool("all")

			rules, err := config.LoadRules(rulesPath)
			if err != nil {
				return err
			}
			dp, err := pipeline.NewDocParser(rules, newLogger(cmd))
			if err != nil {
				return err
			}
			src, err := parser.OpenFile(args[0], parser.Options{PDFBackend: pdfBackend, FallbackPdftotext: true})
			if err != nil {
				return err
			}
			f := normalize.NewFilter(src, dp.Normalizer(), rules.FilterOptions())
			defer f.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', 0)
			n := 0
			for f.Next() {
				l := f.Line()
				n++
				r := dp.Classifier().Classify(l)
				if !all && r.Kind == classify.None && !r.Malformed {
					continue
				}
				style := "?"
				if l.Style.Known {
					style = "-"
					if l.Style.Emphasized {
						style = "E"
					}
					if l.Style.Bold {
						style += "B"
					}
				}
				kind := r.Kind.String()
				if r.Malformed {
					kind = "malformed " + r.MalformedKind.String()
				}
				accepted := ""
				if r.Accepted() {
					accepted = "*"
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					n, l.Page+1, style, kind, r.Confidence, accepted, r.ArticleID, l.Text)
			}
			if err := f.Err(); err != nil {
				return err
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			st := f.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d lines, filtered: %d noise, %d duplicates, %d toc, %d footnotes\n",
				n, st.Noise, st.Duplicates, st.TOC, st.Footnotes)
			return nil
		},
	}

	cmd.Flags().String("pdf-backend", parser.BackendText, "PDF backend (text, layout)")
	cmd.Flags().Bool("all", false, "Print body lines too, not only headings")

	return cmd
}
