/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/format/manifest"
	"github.com/indrora/ustar/ustar/reader"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <archive...>",
	Short: "Investigate the contents of a tar archive",
	Long: `Show every header in the archive: type, mode, ownership, size,
modification time and name. With --cbor a CBOR manifest is written
to stdout instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		for _, filename := range args {
			input, err := openInput(cmd, filename)
			if err != nil {
				return err
			}

			headers, err := reader.List(input, reader.WithLogger(slog.Default()))
			input.Close()
			if err != nil {
				return errors.Wrapf(err, "failed to read %s after %d entries", filename, len(headers))
			}

			if cfg.Inspect.CBOR {
				m := manifest.New(filename)
				for _, header := range headers {
					m.Add(header, nil)
				}
				if err := m.Encode(out); err != nil {
					return err
				}
				continue
			}

			fmt.Fprintln(out, filename)
			total := int64(0)
			for _, header := range headers {
				explainHeader(out, header)
				if cfg.Verbose {
					spew.Fdump(out, header)
				}
				total += header.PayloadSize()
			}
			fmt.Fprintf(out, "%d entries, %d bytes of data\n", len(headers), total)
		}
		return nil
	},
}

func explainHeader(out io.Writer, header format.Header) {
	name := header.Name
	if header.Linkname != "" {
		name += " -> " + header.Linkname
	}
	fmt.Fprintf(out, "%-9s %v %s/%s %10d %s %s\n",
		header.Typeflag,
		header.FileMode(),
		header.Uname,
		header.Gname,
		header.Size,
		header.ModTime.Format("2006-01-02 15:04"),
		name,
	)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("cbor", false, "Write a CBOR manifest instead of a listing")
	viper.BindPFlag("inspect.cbor", inspectCmd.Flags().Lookup("cbor"))
}
