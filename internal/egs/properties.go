package egs

import (
	"path/filepath"

	"nnetctl/internal/failure"
	"nnetctl/internal/fileutil"
)

// PropertyFiles are copied from the egs directory into the experiment
// directory when present.
var PropertyFiles = []string{"cmvn_opts", "splice_opts", "info/final.ie.id", "final.mat"}

// CopyProperties copies the present PropertyFiles from egsDir flat into
// expDir and returns the names copied.
func CopyProperties(egsDir, expDir string) ([]string, error) {
	var copied []string
	for _, name := range PropertyFiles {
		src := filepath.Join(egsDir, name)
		dst := filepath.Join(expDir, filepath.Base(name))
		ok, err := fileutil.CopyIfExists(src, dst)
		if err != nil {
			return copied, failure.Wrap(failure.ErrStateMissing, "egs", "copy properties", expDir, err)
		}
		if ok {
			copied = append(copied, name)
		}
	}
	return copied, nil
}
