package csv

import (
	"encoding/csv"
	"io"

	"golang.org/x/xerrors"
)

// Produces a list of fields making up a record.
type Recorder interface {
	Record() []string
}

// A Headerer names the fields of its records.
type Headerer interface {
	Header() []string
}

// An Encoder writes CSV records to an output stream.
type Encoder struct {
	w      *csv.Writer
	header bool
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w)}
}

// Encode writes a CSV record representing v to the stream followed by a
// newline character. Value given must implement the Recorder interface. If
// the first value encoded is also a Headerer, its header is written first.
func (enc *Encoder) Encode(v interface{}) (err error) {
	defer func() {
		if r, _ := recover().(error); r != nil {
			err = xerrors.Errorf("recovered: %w", r)
		}
	}()

	rec := v.(Recorder)

	if !enc.header {
		enc.header = true
		if h, ok := v.(Headerer); ok {
			if err = enc.w.Write(h.Header()); err != nil {
				return xerrors.Errorf("header: %w", err)
			}
		}
	}

	if err = enc.w.Write(rec.Record()); err != nil {
		return err
	}
	enc.w.Flush()

	return enc.w.Error()
}
