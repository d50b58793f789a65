package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/chriscinelli/rawtar"
	"github.com/chriscinelli/rawtar/internal/digest"
	"github.com/chriscinelli/rawtar/internal/textdecode"
)

type Options struct {
	Verbose     []bool `short:"v" long:"verbose" description:"Show verbose debug information"`
	Lenient     bool   `short:"l" long:"lenient" description:"Decay out-of-range numeric header fields instead of failing"`
	RecordSize  int64  `long:"record-size" description:"Framing unit read from the source" default:"512"`
	BlockSize   int64  `long:"block-size" description:"EOF/padding alignment unit" default:"5120"`
	Include     string `long:"include" description:"Only list/extract entries whose name matches this glob"`
	Exclude     string `long:"exclude" description:"Skip entries whose name matches this glob"`
	Encoding    string `long:"encoding" description:"Non-UTF-8 charmap to decode header names/linknames with (latin1, latin2, cp437, cp850, windows1252)"`
	Digest      bool   `long:"digest" description:"Print an xxhash digest of each entry's payload"`
	Extract     string `short:"x" long:"extract" description:"Extract matched regular-file entries into this directory"`
	Concurrency int    `short:"j" long:"concurrency" description:"Worker pool size for --extract" default:"4"`

	Args struct {
		Archive string `positional-arg-name:"archive" description:"Path to a tar file, or - for stdin"`
	} `positional-args:"yes"`
}

var logger = logrus.New()

func main() {
	rawtar.SetLogger(logger)

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	textFormatter := logrus.TextFormatter{FullTimestamp: true}
	logrus.SetFormatter(&textFormatter)
	if len(opts.Verbose) > 0 {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	if err := run(opts); err != nil {
		logger.Errorln(err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	in := os.Stdin
	if opts.Args.Archive != "" && opts.Args.Archive != "-" {
		f, err := os.Open(opts.Args.Archive)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	textDecoder, err := resolveTextDecoder(opts.Encoding)
	if err != nil {
		return err
	}

	var total int64
	counter := counterFunc(func(n int64) { atomic.AddInt64(&total, n) })

	cur := rawtar.NewCursor(stdinSource{in}, rawtar.Config{
		RecordSize:  opts.RecordSize,
		BlockSize:   opts.BlockSize,
		Lenient:     opts.Lenient,
		Telemetry:   counter,
		TextDecoder: textDecoder,
	})
	defer cur.Close()

	var extractGroup *errgroup.Group
	if opts.Extract != "" {
		extractGroup = &errgroup.Group{}
		extractGroup.SetLimit(opts.Concurrency)
	}

	for {
		entry, err := cur.Next()
		if err != nil {
			break
		}
		if !matchesFilters(entry.Name, opts.Include, opts.Exclude) {
			continue
		}

		line := fmt.Sprintf("%s\t%d\t%s", entry.Type, entry.RealSize, entry.Name)
		if opts.Digest && entry.Type == rawtar.TypeRegular {
			d := digest.New()
			if _, copyErr := copyAll(d, cur); copyErr != nil {
				logger.Warningln("digest failed for", entry.Name, ":", copyErr)
			} else {
				line += fmt.Sprintf("\t%016x", d.Sum64())
			}
		}
		fmt.Println(line)

		if extractGroup != nil && entry.Type == rawtar.TypeRegular {
			dest := filepath.Join(opts.Extract, entry.Name)
			buf := make([]byte, entry.RealSize)
			if _, err := copyAll(&sliceWriter{buf: buf}, cur); err != nil {
				logger.Warningln("extract read failed for", entry.Name, ":", err)
				continue
			}
			extractGroup.Go(func() error {
				return writeFile(dest, buf)
			})
		}
	}

	if extractGroup != nil {
		if err := extractGroup.Wait(); err != nil {
			return err
		}
	}

	logger.Debugln("total bytes read:", total)
	return nil
}

// charmapsByName holds the legacy single-byte encodings --encoding accepts,
// the ones most often seen in tar archives written under a non-UTF-8 locale.
var charmapsByName = map[string]*charmap.Charmap{
	"latin1":      charmap.ISO8859_1,
	"iso8859-1":   charmap.ISO8859_1,
	"latin2":      charmap.ISO8859_2,
	"iso8859-2":   charmap.ISO8859_2,
	"cp437":       charmap.CodePage437,
	"cp850":       charmap.CodePage850,
	"windows1252": charmap.Windows1252,
}

func resolveTextDecoder(encoding string) (rawtar.TextDecoder, error) {
	if encoding == "" {
		return rawtar.UTF8Decoder, nil
	}
	cm, ok := charmapsByName[strings.ToLower(encoding)]
	if !ok {
		return nil, fmt.Errorf("unknown --encoding %q", encoding)
	}
	return textdecode.NewCharmapDecoder(cm), nil
}

func matchesFilters(name, include, exclude string) bool {
	if include != "" {
		ok, _ := doublestar.Match(include, name)
		if !ok {
			return false
		}
	}
	if exclude != "" {
		ok, _ := doublestar.Match(exclude, name)
		if ok {
			return false
		}
	}
	return true
}

func writeFile(dest string, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, buf, 0o644)
}

func copyAll(w interface{ Write([]byte) (int, error) }, cur *rawtar.Cursor) (int64, error) {
	var total int64
	var buf [32 * 1024]byte
	for {
		n, err := cur.Read(buf[:])
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
}

// sliceWriter fills a fixed-size buffer sequentially, used for --extract's
// read-fully-before-write step.
type sliceWriter struct {
	buf []byte
	off int
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.off:], p)
	w.off += n
	return n, nil
}

type counterFunc func(n int64)

func (f counterFunc) AddBytesRead(n int64) { f(n) }

// stdinSource adapts an *os.File to rawtar.Source.
type stdinSource struct{ f *os.File }

func (s stdinSource) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s stdinSource) Skip(n int64) (int64, error) {
	if seeker, ok := any(s.f).(interface {
		Seek(offset int64, whence int) (int64, error)
	}); ok {
		if _, err := seeker.Seek(n, io.SeekCurrent); err == nil {
			return n, nil
		}
	}
	var buf [4096]byte
	var skipped int64
	for skipped < n {
		want := n - skipped
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		r, err := s.f.Read(buf[:want])
		skipped += int64(r)
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}
