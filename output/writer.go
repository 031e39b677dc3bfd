// Package output stores repaired module images as dated files:
//
//	<root>/<module>/<module>_<DD>_<MM>_<YYYY><.ext>
//
// A file is never overwritten; a second dump of the same module on the same
// date is reported as ErrAlreadyExists.
package output

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const DefaultRoot = "output/modules"

var (
	ErrAlreadyExists = errors.New("already dumped")
	ErrMalformedName = errors.New("malformed module name")
)

type Writer struct {
	fs   afero.Fs
	root string
}

func NewWriter(fs afero.Fs, root string) *Writer {
	return &Writer{fs: fs, root: root}
}

func (w *Writer) Root() string {
	return w.root
}

// Path returns the file a module dump for the given date is stored at.
func (w *Writer) Path(module string, date time.Time) (string, error) {
	if !utf8.ValidString(module) {
		return "", errors.Wrapf(ErrMalformedName, "%q", module)
	}

	module = strings.ReplaceAll(module, `\`, "/")
	ext := path.Ext(path.Base(module))
	stem := strings.TrimSuffix(module, ext)
	if ext == path.Base(module) {
		// dotfile, not an extension
		ext = ""
		stem = module
	}

	base := path.Base(stem)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", errors.Wrapf(ErrMalformedName, "%q", module)
	}

	name := fmt.Sprintf("%s_%02d_%02d_%04d%s", base, date.Day(), int(date.Month()), date.Year(), ext)
	return filepath.Join(w.root, filepath.FromSlash(stem), name), nil
}

// Write stores data for module under the date-derived path and returns it.
// If that file already exists nothing is written and the error is
// ErrAlreadyExists.
func (w *Writer) Write(module string, date time.Time, data []byte) (string, error) {
	p, err := w.Path(module, date)
	if err != nil {
		return "", err
	}

	if err := w.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return p, errors.Wrap(err, "create output directory")
	}

	f, err := w.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return p, ErrAlreadyExists
		}
		return p, errors.Wrap(err, "create output file")
	}

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = w.fs.Remove(p)
		return p, errors.Wrap(err, "write output file")
	}
	return p, nil
}
