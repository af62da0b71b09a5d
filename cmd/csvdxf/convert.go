package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdxf/internal/codec"
	"github.com/JonMunkholm/csvdxf/internal/core"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
)

func newConfirmCmd(a *app) *cobra.Command {
	var (
		sets     []string
		decision string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "confirm <run-id>",
		Short: "Confirm a stored draft and write the DXF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return &usageError{fmt.Errorf("run id %q: %w", args[0], err)}
			}
			overrides, err := overrideFlags(sets)
			if err != nil {
				return err
			}

			return a.withService(cmd.Context(), func(svc *core.Service) error {
				d, err := svc.Draft(cmd.Context(), id)
				if err != nil {
					return err
				}

				dec, err := readDecisionFile(decision, d)
				if err != nil {
					return err
				}
				if dec.Overrides == nil && len(overrides) > 0 {
					dec.Overrides = make(map[string]mapping.Role, len(overrides))
				}
				for col, role := range overrides {
					dec.Overrides[col] = role
				}

				out := output
				if out == "" {
					out = defaultOutput(d.Source)
				}

				var res *pipeline.Result
				err = writeOutput(out, func(w io.Writer) error {
					res, err = svc.Confirm(cmd.Context(), id, dec, w)
					return err
				})
				if err != nil {
					return err
				}
				report(cmd.ErrOrStderr(), out, res)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a column role, e.g. --set lon=X (repeatable)")
	cmd.Flags().StringVar(&decision, "decision", "", "YAML decision or edited draft from analyze --draft-out")
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output DXF path, "-" for stdout (default: source name with .dxf)`)
	return cmd
}

func readDecisionFile(path string, d *pipeline.Draft) (pipeline.Decision, error) {
	if path == "" {
		return pipeline.Decision{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return pipeline.Decision{}, &core.DecisionError{Err: err}
	}
	defer f.Close()

	dec, err := codec.ReadDecision(f, d)
	if err != nil {
		return pipeline.Decision{}, &core.DecisionError{Err: err}
	}
	return dec, nil
}

func newConvertCmd(a *app) *cobra.Command {
	var (
		sets   []string
		manual bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a file in one step, accepting the proposed roles",
		Long: `convert infers column roles and writes the DXF without stopping for
review. Use --set to fix roles up front, and --manual to skip inference
entirely (then --set must name the X and Y columns).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := overrideFlags(sets)
			if err != nil {
				return err
			}

			out := output
			if out == "" {
				out = defaultOutput(args[0])
			}

			return a.withService(cmd.Context(), func(svc *core.Service) error {
				var res *pipeline.Result
				err := writeOutput(out, func(w io.Writer) error {
					var err error
					res, err = svc.Convert(cmd.Context(), args[0], core.ConvertOptions{Manual: manual, Overrides: overrides}, w)
					return err
				})
				if err != nil {
					return err
				}
				report(cmd.ErrOrStderr(), out, res)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a column role, e.g. --set lon=X (repeatable)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Skip inference")
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output DXF path, "-" for stdout (default: input name with .dxf)`)
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		sets   []string
		manual bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Convert several files in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := overrideFlags(sets)
			if err != nil {
				return err
			}

			return a.withService(cmd.Context(), func(svc *core.Service) error {
				items, err := svc.ConvertBatch(cmd.Context(), args, outDir, core.ConvertOptions{Manual: manual, Overrides: overrides})
				if err != nil {
					return err
				}

				failed := 0
				for _, it := range items {
					if it.Err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %s\n", it.Path, core.FormatUserError(it.Err))
						continue
					}
					report(cmd.ErrOrStderr(), it.Output, it.Result)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(items))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a column role in every file (repeatable)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Skip inference")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for the DXF files")
	return cmd
}

// report prints what a finished run produced, including skipped rows.
func report(w io.Writer, out string, res *pipeline.Result) {
	fmt.Fprintf(w, "wrote %s: %d entities on %d layer(s) from %d rows, %d skipped\n",
		out, res.Drawing.EntityCount(), len(res.Drawing.Layers), res.Rows, res.Skipped)
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, "  -", warn)
	}
}
