package utils

import "fmt"

// IOError reports a failure reading or writing a source/binary file: a missing '.jack'/'.vm' file,
// a directory where a file is expected, or an unwritable output path. Shared across the three
// 'cmd' entrypoints so they can all report a single recognizable error shape regardless of which
// stage of the toolchain touched the filesystem.
type IOError struct {
	Path string
	Err  error
}

func (e IOError) Error() string { return fmt.Sprintf("io error: %s: %s", e.Path, e.Err) }

func (e IOError) Unwrap() error { return e.Err }
