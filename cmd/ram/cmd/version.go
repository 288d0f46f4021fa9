package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show which ram build is running",
		Long: `Show the ram release, the commit it was built from and the Go toolchain.

Release builds stamp these values through -ldflags; a plain "go build" reports
version "dev". Include this output when filing a bug about a memory store.`,
		Example: `  ram version
  ram version --format short
  ram version --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeVersion(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, short, json")

	return cmd
}

func writeVersion(w io.Writer, format string) error {
	switch format {
	case "text":
		_, err := fmt.Fprintln(w, version.String())
		return err
	case "short":
		_, err := fmt.Fprintln(w, version.Short())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(version.GetInfo())
	default:
		return ramerrors.New(ramerrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown format %q", format), nil).
			WithSuggestion("use --format text, short or json")
	}
}
