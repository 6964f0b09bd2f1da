package fuzzcmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"nikand.dev/go/graceful"
	"nikand.dev/go/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"nikand.dev/go/fuzz/cover"
	"nikand.dev/go/fuzz/harness"
	"nikand.dev/go/fuzz/instrument"
	"nikand.dev/go/fuzz/web"
)

type (
	statusLine struct {
		w    io.Writer
		tty  bool
		last time.Time
		b    []byte
	}
)

var ErrCrashes = errors.New("crashes found")

func App() *cli.Command {
	replayCmd := &cli.Command{
		Name:        "replay,run,r",
		Description: "execute inputs against a registered target",
		Action:      replay,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("target,t", "", "target name"),
			cli.NewFlag("follow,f", false, "watch directories for new inputs until terminated"),
			cli.NewFlag("http", "", "serve stats and coverage on the address"),
			cli.NewFlag("cover-out", "", "write max coverage dump to the file"),
			cli.NewFlag("compress,z", false, "compress coverage dump"),
		},
	}

	instrumentCmd := &cli.Command{
		Name:        "instrument,weave",
		Description: "weave coverage counters into go source files",
		Action:      instrumentRun,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("out,o", "", "output directory"),
			cli.NewFlag("meta,m", "", "edges metadata json file"),
			cli.NewFlag("tests", false, "instrument _test.go files too"),
			cli.NewFlag("import", instrument.DefaultImport, "counters package import path"),
		},
	}

	coverCmd := &cli.Command{
		Name:        "cover,dump",
		Description: "print coverage dump counters",
		Action:      coverRun,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("all,a", false, "print zero counters too"),
		},
	}

	app := &cli.Command{
		Name:        "fuzz",
		Description: "fuzzing runtime tools",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.NewFlag("cover-size", cover.DefaultSize, "coverage counters table size"),
			cli.NewFlag("cover-limit", cover.DefaultLimit, "coverage counters table growth limit"),
			cli.FlagfileFlag,
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			replayCmd,
			instrumentCmd,
			coverCmd,
			{
				Name:        "targets",
				Description: "list registered targets",
				Action:      targetsRun,
			},
		},
	}

	return app
}

func before(c *cli.Command) error {
	w, err := openLog(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	size, limit := c.Int("cover-size"), c.Int("cover-limit")
	if size <= 0 {
		return errors.New("bad cover size: %v", size)
	}

	// woven code may already be running, so the table is grown in place
	cover.Default.SetLimit(max(limit, size))

	err = cover.Default.Reserve(size)
	if err != nil {
		return errors.Wrap(err, "reserve cover")
	}

	tlog.V("cover").Printw("counters", "size", cover.Default.Len(), "limit", cover.Default.Limit())

	return nil
}

func openLog(name string) (io.Writer, error) {
	switch name {
	case "", "stderr":
		return tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags), nil
	case "-", "stdout":
		return tlog.NewConsoleWriter(os.Stdout, tlog.LstdFlags), nil
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(name) {
	case ".tl", ".tlog":
		return f, nil
	}

	return tlog.NewConsoleWriter(f, tlog.LstdFlags|tlog.Lmilliseconds), nil
}

func replay(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	target, err := harness.Lookup(c.String("target"))
	if err != nil {
		return errors.Wrap(err, "targets: %v", harness.Targets())
	}

	if c.Args.Len() == 0 {
		return errors.New("inputs expected")
	}

	r := harness.NewRunner(nil)
	st := newStatusLine(os.Stderr)

	report := func(path string, res harness.Result) error {
		if res.Interesting {
			tlog.Printw("new coverage", "input", path, "edges", res.Edges, "new_edges", res.NewEdges, "new_buckets", res.NewBuckets)
		}

		st.Update(r.Stats())

		return nil
	}

	defer func() {
		st.Done()

		s := r.Stats()

		tlog.Printw("replay done", "execs", s.Execs, "ok", s.OK, "discards", s.Discards, "fails", s.Fails, "crashes", s.Crashes,
			"edges", s.Edges, "elapsed", s.Elapsed)

		if q := c.String("cover-out"); q != "" {
			e := writeCover(q, r.Cover(), c.Bool("compress"))
			if err == nil {
				err = e
			}
		}

		if err == nil && s.Crashes != 0 {
			err = errors.Wrap(ErrCrashes, "%d", s.Crashes)
		}
	}()

	err = harness.ReplayAll(ctx, r, target, c.Args, report)
	if err != nil {
		return err
	}

	if !c.Bool("follow") && c.String("http") == "" {
		return nil
	}

	group := graceful.New()

	if q := c.String("http"); q != "" {
		l, err := net.Listen("tcp", q)
		if err != nil {
			return errors.Wrap(err, "listen http")
		}

		srv := &http.Server{
			Handler:           web.New(r).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		group.Add(func(ctx context.Context) error {
			tlog.Printw("serve http", "addr", l.Addr())

			err := srv.Serve(l)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}

			return errors.Wrap(err, "serve http")
		}, graceful.WithStop(func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		}))
	}

	if c.Bool("follow") {
		group.Add(func(ctx context.Context) error {
			return follow(ctx, r, target, c.Args, report)
		})
	}

	return group.Run(ctx, graceful.IgnoreErrors(context.Canceled))
}

func follow(ctx context.Context, r *harness.Runner, target harness.Target, paths []string, report func(string, harness.Result) error) (err error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fs watcher")
	}

	defer func() {
		e := fs.Close()
		if err == nil {
			err = errors.Wrap(e, "close watcher")
		}
	}()

	var dirs int

	for _, p := range paths {
		inf, err := os.Stat(p)
		if err != nil {
			return errors.Wrap(err, "stat %v", p)
		}

		if !inf.IsDir() {
			continue
		}

		err = fs.Add(p)
		tlog.V("watch").Printw("watch dir", "name", p, "err", err)
		if err != nil {
			return errors.Wrap(err, "watch")
		}

		dirs++
	}

	if dirs == 0 {
		return errors.New("no directories to follow")
	}

	// Inputs are expected to be moved into the directory complete,
	// so only Create is handled.
	var ev fsnotify.Event

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev = <-fs.Events:
		case err = <-fs.Errors:
			return errors.Wrap(err, "watch")
		}

		tlog.V("fsevent").Printw("fs event", "name", ev.Name, "op", ev.Op)

		if ev.Op&fsnotify.Create == 0 || harness.IsHidden(ev.Name) {
			continue
		}

		inf, err := os.Stat(ev.Name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "stat %v", ev.Name)
		}

		if !inf.Mode().IsRegular() {
			continue
		}

		res, err := harness.ReplayFile(ctx, r, target, ev.Name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "replay %v", ev.Name)
		}

		err = report(ev.Name, res)
		if err != nil {
			return err
		}
	}
}

func writeCover(name string, cnt []byte, compress bool) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create cover file")
	}

	defer func() {
		e := f.Close()
		if err == nil {
			err = errors.Wrap(e, "close cover file")
		}
	}()

	err = cover.WriteDump(f, cnt, compress)
	if err != nil {
		return err
	}

	tlog.Printw("coverage saved", "file", name, "size", len(cnt), "edges", cover.Count(cnt))

	return nil
}

func instrumentRun(c *cli.Command) (err error) {
	out := c.String("out")
	if out == "" {
		return errors.New("--out expected")
	}

	if c.Args.Len() == 0 {
		return errors.New("files expected")
	}

	err = os.MkdirAll(out, 0o755)
	if err != nil {
		return errors.Wrap(err, "create output dir")
	}

	in := instrument.New()
	in.Import = c.String("import")

	var files int

	for _, a := range c.Args {
		names, err := goFiles(a, c.Bool("tests"))
		if err != nil {
			return err
		}

		for _, name := range names {
			src, err := os.ReadFile(name)
			if err != nil {
				return errors.Wrap(err, "read %v", name)
			}

			res, err := in.File(name, src)
			if err != nil {
				return err
			}

			err = os.WriteFile(filepath.Join(out, filepath.Base(name)), res, 0o644)
			if err != nil {
				return errors.Wrap(err, "write %v", name)
			}

			files++
		}
	}

	if in.Package != "" {
		err = writeReserve(out, in)
		if err != nil {
			return err
		}
	}

	if q := c.String("meta"); q != "" {
		err = writeMeta(q, in)
		if err != nil {
			return err
		}
	}

	tlog.Printw("instrumented", "files", files, "edges", in.Next, "out", out)

	fmt.Printf("%d\n", in.Next)

	return nil
}

func writeReserve(dir string, in *instrument.Instrumenter) error {
	res, err := in.ReserveFile()
	if err != nil {
		return errors.Wrap(err, "reserve file")
	}

	err = os.WriteFile(filepath.Join(dir, instrument.ReserveFileName), res, 0o644)
	if err != nil {
		return errors.Wrap(err, "write reserve file")
	}

	return nil
}

func goFiles(p string, tests bool) ([]string, error) {
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

	var l []string

	for _, e := range ents {
		n := e.Name()

		if !e.Type().IsRegular() || harness.IsHidden(n) || !strings.HasSuffix(n, ".go") {
			continue
		}

		if !tests && strings.HasSuffix(n, "_test.go") {
			continue
		}

		l = append(l, filepath.Join(p, n))
	}

	return l, nil
}

func writeMeta(name string, in *instrument.Instrumenter) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create meta file")
	}

	defer func() {
		e := f.Close()
		if err == nil {
			err = errors.Wrap(e, "close meta file")
		}
	}()

	return in.WriteMeta(f)
}

func coverRun(c *cli.Command) (err error) {
	if c.Args.Len() != 1 {
		return errors.New("one dump file expected")
	}

	f, err := os.Open(c.Args.First())
	if err != nil {
		return errors.Wrap(err, "open dump")
	}

	defer func() {
		e := f.Close()
		if err == nil {
			err = errors.Wrap(e, "close dump")
		}
	}()

	cnt, err := cover.ReadDump(f)
	if err != nil {
		return errors.Wrap(err, "read %v", c.Args.First())
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("# size %d  edges %d\n", len(cnt), cover.Count(cnt))
	}

	if c.Bool("all") {
		return cover.FormatAll(os.Stdout, cnt)
	}

	return cover.Format(os.Stdout, cnt)
}

func targetsRun(c *cli.Command) error {
	for _, name := range harness.Targets() {
		fmt.Println(name)
	}

	return nil
}

func newStatusLine(f *os.File) *statusLine {
	return &statusLine{
		w:   f,
		tty: term.IsTerminal(int(f.Fd())),
	}
}

// Update redraws the line at most every 100ms.
func (s *statusLine) Update(st harness.Stats) {
	if !s.tty {
		return
	}

	now := time.Now()
	if now.Sub(s.last) < 100*time.Millisecond {
		return
	}

	s.last = now

	s.b = hfmt.Appendf(s.b[:0], "\rexecs %d  ok %d  discard %d  fail %d  crash %d  edges %d  interesting %d ",
		st.Execs, st.OK, st.Discards, st.Fails, st.Crashes, st.Edges, st.Interesting)

	_, _ = s.w.Write(s.b)
}

func (s *statusLine) Done() {
	if !s.tty || s.last.IsZero() {
		return
	}

	_, _ = s.w.Write([]byte("\n"))
}
