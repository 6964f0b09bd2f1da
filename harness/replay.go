package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// ReplayFile executes target on the file contents.
// r may be nil for DefaultRunner.
func ReplayFile(ctx context.Context, r *Runner, target Target, path string) (res Result, err error) {
	if r == nil {
		r = DefaultRunner
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, errors.Wrap(err, "read input")
	}

	return r.exec(ctx, path, target, data), nil
}

// ReplayAll replays files and regular files of directories, not recursively.
// Hidden files are skipped. fn is called after each execution if not nil.
func ReplayAll(ctx context.Context, r *Runner, target Target, paths []string, fn func(path string, res Result) error) (err error) {
	tr := tlog.SpawnFromContext(ctx, "replay", "paths", paths)
	defer tr.Finish("err", &err)

	ctx = tlog.ContextWithSpan(ctx, tr)

	for _, p := range paths {
		files, err := inputFiles(p)
		if err != nil {
			return err
		}

		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := ReplayFile(ctx, r, target, f)
			if err != nil {
				return errors.Wrap(err, "%v", f)
			}

			if fn == nil {
				continue
			}

			err = fn(f, res)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func inputFiles(p string) ([]string, error) {
	p = filepath.Clean(p)

	inf, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrap(err, "stat %v", p)
	}

	if !inf.IsDir() {
		return []string{p}, nil
	}

	ents, err := os.ReadDir(p)
	if err != nil {
		return nil, errors.Wrap(err, "readdir %v", p)
	}

	var files []string

	for _, e := range ents {
		if IsHidden(e.Name()) || !e.Type().IsRegular() {
			continue
		}

		files = append(files, filepath.Join(p, e.Name()))
	}

	return files, nil
}

func IsHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}
