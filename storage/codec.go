package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// serializer is the method set shared by the mus-go serializers.
type serializer[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Unmarshal(bs []byte) (v T, n int, err error)
	Size(v T) (size int)
}

// encoder runs a write function twice: once to size the buffer, once to fill it.
type encoder struct {
	buf    []byte
	n      int
	sizing bool
}

func put[T any](e *encoder, s serializer[T], v T) {
	if e.sizing {
		e.n += s.Size(v)
		return
	}
	e.n += s.Marshal(v, e.buf[e.n:])
}

func (e *encoder) string(v string)   { put(e, serializer[string](ord.String), v) }
func (e *encoder) bool(v bool)       { put(e, serializer[bool](ord.Bool), v) }
func (e *encoder) uint64(v uint64)   { put(e, serializer[uint64](varint.Uint64), v) }
func (e *encoder) int64(v int64)     { put(e, serializer[int64](varint.Int64), v) }
func (e *encoder) float32(v float32) { put(e, serializer[float32](raw.Float32), v) }
func (e *encoder) float64(v float64) { put(e, serializer[float64](raw.Float64), v) }

func (e *encoder) int(v int) { e.int64(int64(v)) }

func (e *encoder) length(n int) { e.uint64(uint64(n)) }

func encode(write func(e *encoder)) []byte {
	sizer := &encoder{sizing: true}
	write(sizer)
	e := &encoder{buf: make([]byte, sizer.n)}
	write(e)
	return e.buf
}

// decoder reads values in order, keeping the first error.
type decoder struct {
	data []byte
	n    int
	err  error
}

func get[T any](d *decoder, s serializer[T]) T {
	var zero T
	if d.err != nil {
		return zero
	}
	v, n, err := s.Unmarshal(d.data[d.n:])
	if err != nil {
		d.err = fmt.Errorf("%w: offset %d: %w", ErrSerializationFailed, d.n, err)
		return zero
	}
	d.n += n
	return v
}

func (d *decoder) string() string   { return get(d, serializer[string](ord.String)) }
func (d *decoder) bool() bool       { return get(d, serializer[bool](ord.Bool)) }
func (d *decoder) uint64() uint64   { return get(d, serializer[uint64](varint.Uint64)) }
func (d *decoder) int64() int64     { return get(d, serializer[int64](varint.Int64)) }
func (d *decoder) float32() float32 { return get(d, serializer[float32](raw.Float32)) }
func (d *decoder) float64() float64 { return get(d, serializer[float64](raw.Float64)) }

func (d *decoder) int() int { return int(d.int64()) }

// length reads a collection length. Each element takes at least minElemSize
// bytes, so a length larger than the remaining data is rejected before allocating.
func (d *decoder) length(minElemSize int) int {
	n := d.uint64()
	if d.err != nil {
		return 0
	}
	remaining := uint64(len(d.data) - d.n)
	if n*uint64(minElemSize) > remaining {
		d.err = fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrTruncatedData, n, remaining)
		return 0
	}
	return int(n)
}

func decode(data []byte, read func(d *decoder)) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty data", ErrTruncatedData)
	}
	d := &decoder{data: data}
	read(d)
	if d.err == nil && d.n != len(data) {
		return fmt.Errorf("%w: %d of %d bytes unread", ErrTrailingData, len(data)-d.n, len(data))
	}
	return d.err
}
