package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeusData/lazycode/internal/lazy"
	"github.com/DeusData/lazycode/internal/verify"
)

func newTransformCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "transform [file]",
		Short: "Transform one bundle from a file or stdin",
		Long: `Transform reads a bundle from the given file, or stdin when the file is
omitted or "-", and writes the result to stdout or --output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			src, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			lc, err := cfg.ToLazy()
			if err != nil {
				return err
			}
			t, err := lazy.New(lc)
			if err != nil {
				return err
			}
			res, err := t.Transform(src)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if cfg.Verify {
				if err := verify.JS(res.Output); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}

			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), res.Output)
				return err
			}
			if err := os.WriteFile(output, []byte(res.Output), 0o644); err != nil {
				return err
			}
			slog.Info("transform.done", "input", name, "output", output,
				"mode", res.Mode, "modules", len(res.Modules))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file instead of stdout")
	addTransformFlags(cmd.Flags())
	return cmd
}

// readInput returns the bytes of args[0], or stdin when it is absent or "-",
// along with a name for messages.
func readInput(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		src, err := io.ReadAll(cmd.InOrStdin())
		return src, "<stdin>", err
	}
	src, err := os.ReadFile(args[0])
	return src, args[0], err
}
