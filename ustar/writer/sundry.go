package writer

import (
	"io"
	"io/fs"

	"github.com/indrora/ustar/ustar/format"
)

// FileInfoHeader fills a header from a stat result. Ownership is not
// carried over; entries belong to uid and gid 0.
func FileInfoHeader(name string, info fs.FileInfo) format.Header {
	header := format.Header{
		Name:     name,
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
		Typeflag: format.ENTRY_REGULAR,
	}

	switch {
	case info.IsDir():
		header.Typeflag = format.ENTRY_DIRECTORY
		if len(name) > 0 && !format.IsPathSeparator(name[len(name)-1]) {
			header.Name += "/"
		}
	case info.Mode()&fs.ModeSymlink != 0:
		header.Typeflag = format.ENTRY_SYMLINK
	case info.Mode()&fs.ModeNamedPipe != 0:
		header.Typeflag = format.ENTRY_FIFO
	default:
		header.Size = info.Size()
	}

	return header
}

func (archive *ArchiveWriter) AppendDirectory(path string, info fs.FileInfo) error {
	header := FileInfoHeader(path, info)
	return archive.WriteHeader(&header)
}

func (archive *ArchiveWriter) AppendSymlink(path string, destination string, info fs.FileInfo) error {
	header := FileInfoHeader(path, info)
	header.Typeflag = format.ENTRY_SYMLINK
	header.Linkname = destination
	header.Size = 0
	return archive.WriteHeader(&header)
}

func (archive *ArchiveWriter) AppendFile(path string, info fs.FileInfo, contents io.Reader) error {
	return archive.AppendStream(FileInfoHeader(path, info), contents)
}
