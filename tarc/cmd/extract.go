/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/indrora/ustar/tarc/internal/config"
	"github.com/indrora/ustar/ustar/bundle"
	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/reader"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <archive|->",
	Short: "Unpack a tar archive or provisioning bundle",
	Long: `Unpack a given archive to the given path (default ".").

With --bundle the input is base64 text holding a tar stream, compressed
with gzip, zstd, xz or lz4 (detected) or brotli (--compression brotli).`,
	Example: `tarc extract certs.tar --dest /etc/agent --strict
tarc extract - --bundle --skip-if-exists agent.crt < bundle.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	opts := cfg.Extract
	fs := afero.NewOsFs()

	input, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer input.Close()

	var extracted []reader.Extracted
	if opts.Bundle {
		result, err := installBundle(fs, input, opts)
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already present, nothing to do\n", opts.SkipIfExists)
			return nil
		}
		extracted = result.Entries
	} else {
		extractOpts := []reader.ExtractOption{reader.WithExtractLogger(slog.Default())}
		if opts.Strict {
			extractOpts = append(extractOpts, reader.WithStrictPaths())
		}
		archive := reader.NewReader(input, reader.WithLogger(slog.Default()))
		extracted, err = archive.ExtractAll(fs, opts.Dest, extractOpts...)
		if err != nil {
			return errors.Wrapf(err, "failed to extract %s", args[0])
		}
	}

	for _, entry := range extracted {
		digest := "-"
		if entry.Digest != nil {
			digest = entry.DigestString()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", digest, entry.Path)
	}
	return nil
}

func installBundle(fs afero.Fs, input io.Reader, opts config.Extract) (*bundle.Result, error) {
	text, err := io.ReadAll(input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bundle")
	}

	bundleOpts := []bundle.Option{bundle.WithLogger(slog.Default())}
	if opts.Strict {
		bundleOpts = append(bundleOpts, bundle.WithStrictPaths())
	}
	if opts.SkipIfExists != "" {
		bundleOpts = append(bundleOpts, bundle.WithSkipIfExists(opts.SkipIfExists))
	}
	if opts.Manifest != "" {
		bundleOpts = append(bundleOpts, bundle.WithManifest(opts.Manifest))
	}
	if opts.Compression != "" {
		compression, ok := format.ParseCompression(opts.Compression)
		if !ok {
			return nil, errors.Wrapf(bundle.ErrUnknownCompression, "%q", opts.Compression)
		}
		bundleOpts = append(bundleOpts, bundle.WithCompression(compression))
	}

	return bundle.Install(fs, string(text), opts.Dest, bundleOpts...)
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("dest", "C", ".", "Directory to extract into")
	extractCmd.Flags().Bool("bundle", false, "Input is a base64 provisioning bundle")
	extractCmd.Flags().String("compression", "", "Bundle compression, when it cannot be detected")
	extractCmd.Flags().Bool("strict", false, "Refuse entries that would land outside the destination")
	extractCmd.Flags().String("skip-if-exists", "", "Skip the bundle if this file exists below the destination")
	extractCmd.Flags().String("manifest", "", "Write a CBOR manifest of the bundle to this name below the destination")

	viper.BindPFlag("extract.dest", extractCmd.Flags().Lookup("dest"))
	viper.BindPFlag("extract.bundle", extractCmd.Flags().Lookup("bundle"))
	viper.BindPFlag("extract.compression", extractCmd.Flags().Lookup("compression"))
	viper.BindPFlag("extract.strict", extractCmd.Flags().Lookup("strict"))
	viper.BindPFlag("extract.skip_if_exists", extractCmd.Flags().Lookup("skip-if-exists"))
	viper.BindPFlag("extract.manifest", extractCmd.Flags().Lookup("manifest"))
}
