package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/csvdxf/internal/codec"
	"github.com/JonMunkholm/csvdxf/internal/core"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/runstore"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

func newProfileCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profile <file>",
		Short: "Print per-column statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			t, err := table.Load(args[0], opts.Table)
			if err != nil {
				return err
			}
			profiles := profile.Profile(t, opts.Profile)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(profiles)
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(profiles); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		manual   bool
		draftOut string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Propose column roles and store the draft for confirmation",
		Long: `analyze profiles the file, asks the inference engine for column roles
and stores the resulting draft. Review it, then run "csvdxf confirm <run-id>".

With --draft-out the draft is also written as YAML. Edit the roles in that
file and pass it back with "csvdxf confirm <run-id> --decision <file>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(a.cfg.Store.Driver, runstore.DriverMemory) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: the memory store forgets drafts when csvdxf exits; use sqlite or postgres to confirm later")
			}

			return a.withService(cmd.Context(), func(svc *core.Service) error {
				analyze := svc.Analyze
				if manual {
					analyze = svc.AnalyzeManual
				}

				d, err := analyze(cmd.Context(), args[0])
				if d == nil {
					return err
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "inference failed, assign roles manually: %s\n", core.FormatUserError(err))
				}

				printDraft(cmd.OutOrStdout(), d)

				if draftOut != "" {
					return writeOutput(draftOut, func(w io.Writer) error {
						return codec.WriteDraft(w, d)
					})
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Skip inference")
	cmd.Flags().StringVar(&draftOut, "draft-out", "", "Also write the draft as editable YAML")
	return cmd
}

func printDraft(w io.Writer, d *pipeline.Draft) {
	fmt.Fprintf(w, "run %s  %s  (%d rows)\n\n", d.RunID, d.Source, d.Rows)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tROLE\tCONFIDENCE\tSOURCE\tRATIONALE")
	for _, as := range d.Mapping.Assignments {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", as.Column, as.Role, as.Confidence, as.Source, as.Rationale)
	}
	tw.Flush()

	if len(d.Mapping.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range d.Mapping.Warnings {
			fmt.Fprintln(w, "  !", warn)
		}
	}

	fmt.Fprintf(w, "\nconfirm with: csvdxf confirm %s [--set column=ROLE ...] -o out.dxf\n", d.RunID)
}
