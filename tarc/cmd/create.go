/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/indrora/ustar/ustar/bundle"
	"github.com/indrora/ustar/ustar/format"
	"github.com/indrora/ustar/ustar/ioutil"
	"github.com/indrora/ustar/ustar/writer"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <archive|-> <paths...>",
	Short: "Create a tar archive or provisioning bundle",
	Long: `Create an archive from a specified set of paths.

example:

tarc create certs.tar.gz --compression gzip pki/*`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.Create

		compression, ok := format.ParseCompression(opts.Compression)
		if !ok {
			return errors.Wrapf(ioutil.ErrUnknownCompression, "%q", opts.Compression)
		}

		out, err := openOutput(cmd, args[0])
		if err != nil {
			return err
		}
		defer out.Close()

		// The archive is built on one end of a pipe while the other end is
		// compressed into the output.
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(writeArchive(afero.NewOsFs(), pw, args[1:]))
		}()

		var written int64
		if opts.Bundle {
			written, err = bundle.Encode(out, pr, compression)
		} else {
			var compressor ioutil.CompressWriter
			if compressor, err = ioutil.NewCompressWriter(compression); err == nil {
				written, err = compressor.Copy(out, pr)
			}
		}
		pr.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", args[0])
		}

		slog.Info("created archive",
			"path", args[0],
			"bytes", written,
			"compression", compression.String(),
			"bundle", opts.Bundle,
		)
		return out.Close()
	},
}

// writeArchive walks every path and appends what it finds.
func writeArchive(fsys afero.Fs, dest io.Writer, paths []string) error {
	archive := writer.NewWriter(dest)

	for _, root := range paths {
		err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			name := archiveName(path)
			if name == "" {
				return nil
			}

			switch {
			case info.IsDir():
				err = archive.AppendDirectory(name, info)
			case info.Mode()&fs.ModeSymlink != 0:
				err = appendSymlink(fsys, archive, path, name, info)
			case info.Mode().IsRegular():
				err = appendFile(fsys, archive, path, name, info)
			default:
				slog.Warn("skipping special file", "path", path, "mode", info.Mode().String())
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "failed to add %s", path)
			}
			slog.Debug("added", "name", name, "size", info.Size())
			return nil
		})
		if err != nil {
			return err
		}
	}

	return archive.Close()
}

func appendFile(fsys afero.Fs, archive *writer.ArchiveWriter, path string, name string, info fs.FileInfo) error {
	file, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return archive.AppendFile(name, info, file)
}

func appendSymlink(fsys afero.Fs, archive *writer.ArchiveWriter, path string, name string, info fs.FileInfo) error {
	linker, ok := fsys.(afero.LinkReader)
	if !ok {
		return errors.New("filesystem cannot read links")
	}
	destination, err := linker.ReadlinkIfPossible(path)
	if err != nil {
		return err
	}
	return archive.AppendSymlink(name, destination, info)
}

// archiveName is path as stored: slash separated, relative.
func archiveName(path string) string {
	name := filepath.ToSlash(filepath.Clean(path))
	name = strings.TrimLeft(name, "/")
	if name == "." {
		return ""
	}
	return strings.TrimPrefix(name, "./")
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().String("compression", "none", "Compression: none, gzip, zstd, brotli, lz4 or xz")
	createCmd.Flags().Bool("bundle", false, "Write base64 bundle text instead of binary")

	viper.BindPFlag("create.compression", createCmd.Flags().Lookup("compression"))
	viper.BindPFlag("create.bundle", createCmd.Flags().Lookup("bundle"))
}
