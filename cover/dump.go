package cover

import (
	"bytes"
	"io"

	"nikand.dev/go/hacked/hfmt"
	"tlog.app/go/eazy"
	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

// Dump format is a tlwire map:
//
//	{"size": <table size>, "edges": [[id, count], ...]}
//
// Only non-zero counters are stored.
// Dump file may be eazy-compressed, that is detected on read.

var ErrMalformedDump = errors.New("malformed dump")

const (
	dumpBlockSize = 1 * eazy.MiB
	dumpHashTable = 1024
)

// AppendDump appends encoded counters to b.
func AppendDump(b, cnt []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "size", len(cnt))

	b = e.AppendKey(b, "edges")
	b = e.AppendArray(b, Count(cnt))

	for id, v := range cnt {
		if v == 0 {
			continue
		}

		b = e.AppendArray(b, 2)
		b = e.AppendInt(b, id)
		b = e.AppendInt(b, int(v))
	}

	return b
}

// ParseDump decodes counters appended by AppendDump.
// It returns the position after the dump.
func ParseDump(b []byte) (cnt []byte, i int, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}

		err = errors.Wrap(ErrMalformedDump, "%v", p)
	}()

	var d tlwire.Decoder

	tag, sub, i := d.Tag(b, 0)
	if tag != tlwire.Map {
		return nil, 0, errors.Wrap(ErrMalformedDump, "expected map, got %x", tag)
	}

	size := -1
	var edges [][2]uint64

	for el := 0; el < int(sub); el++ {
		var k []byte
		k, i = d.Bytes(b, i)

		switch string(k) {
		case "size":
			var v uint64
			v, i = d.Unsigned(b, i)

			if v > DefaultLimit {
				return nil, 0, errors.Wrap(ErrMalformedDump, "size too big: %d", v)
			}

			size = int(v)
		case "edges":
			var n int64
			tag, n, i = d.Tag(b, i)
			if tag != tlwire.Array || n < 0 || n > int64(len(b)) {
				return nil, 0, errors.Wrap(ErrMalformedDump, "edges: expected array, got %x/%d", tag, n)
			}

			edges = make([][2]uint64, 0, n)

			for j := 0; j < int(n); j++ {
				var l int64
				tag, l, i = d.Tag(b, i)
				if tag != tlwire.Array || l != 2 {
					return nil, 0, errors.Wrap(ErrMalformedDump, "edge: expected pair")
				}

				var id, v uint64
				id, i = d.Unsigned(b, i)
				v, i = d.Unsigned(b, i)

				edges = append(edges, [2]uint64{id, v})
			}
		default:
			i = d.Skip(b, i)
		}
	}

	if size < 0 {
		return nil, 0, errors.Wrap(ErrMalformedDump, "no size")
	}

	cnt = make([]byte, size)

	for _, e := range edges {
		if e[0] >= uint64(size) || e[1] == 0 || e[1] > 0xff {
			return nil, 0, errors.Wrap(ErrMalformedDump, "bad edge: %d = %d", e[0], e[1])
		}

		cnt[e[0]] = byte(e[1])
	}

	return cnt, i, nil
}

// WriteDump writes counters to w, optionally compressed.
func WriteDump(w io.Writer, cnt []byte, compress bool) (err error) {
	b := AppendDump(nil, cnt)

	if compress {
		w = eazy.NewWriter(w, dumpBlockSize, dumpHashTable)
	}

	_, err = w.Write(b)
	if err != nil {
		return errors.Wrap(err, "write dump")
	}

	return nil
}

// ReadDump reads counters written by WriteDump.
func ReadDump(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read dump")
	}

	if len(data) == 0 {
		return nil, errors.Wrap(ErrMalformedDump, "empty")
	}

	if tlwire.Tag(data[0])&tlwire.TagMask != tlwire.Map {
		data, err = io.ReadAll(eazy.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, errors.Wrap(err, "decompress dump")
		}
	}

	cnt, _, err := ParseDump(data)
	if err != nil {
		return nil, err
	}

	return cnt, nil
}

// Format prints non-zero counters in `id: count` lines.
func Format(w io.Writer, cnt []byte) error {
	return format(w, cnt, false)
}

// FormatAll is Format including zero counters.
func FormatAll(w io.Writer, cnt []byte) error {
	return format(w, cnt, true)
}

func format(w io.Writer, cnt []byte, all bool) error {
	var b []byte

	for id, v := range cnt {
		if v == 0 && !all {
			continue
		}

		b = hfmt.Appendf(b, "%6d: %3d\n", id, v)
	}

	_, err := w.Write(b)

	return err
}
