// Package output writes sample streams for external decoder chains.
package output

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const defaultBatchSize = 8192

// CFileWriter writes complex samples as interleaved little endian float32
// I/Q, the GNU Radio .cfile layout. Samples are buffered in batches.
type CFileWriter struct {
	dest      io.Writer
	buf       *bytes.Buffer
	pending   []float32
	batchSize int
	written   int
}

func NewCFileWriter(dest io.Writer) *CFileWriter {
	return &CFileWriter{
		dest:      dest,
		buf:       bytes.NewBuffer(make([]byte, 0, defaultBatchSize*8)),
		pending:   make([]float32, 0, defaultBatchSize*2),
		batchSize: defaultBatchSize,
	}
}

// Write queues samples and flushes every full batch.
func (c *CFileWriter) Write(samples []complex128) error {
	for _, v := range samples {
		c.pending = append(c.pending, float32(real(v)), float32(imag(v)))
		if len(c.pending) == 2*c.batchSize {
			if err := c.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *CFileWriter) Flush() error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := binary.Write(c.buf, binary.LittleEndian, c.pending); err != nil {
		return err
	}
	c.written += len(c.pending) / 2
	c.pending = c.pending[:0]
	_, err := c.buf.WriteTo(c.dest)
	c.buf.Reset()
	return err
}

// Written is the number of samples flushed so far.
func (c *CFileWriter) Written() int {
	return c.written
}

func WriteCFile(path string, samples []complex128) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := NewCFileWriter(f)
	if err := w.Write(samples); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCFile reads a whole .cfile stream.
func ReadCFile(r io.Reader) ([]complex64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("cfile length %d is not a whole number of samples", len(data))
	}
	vals := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, vals); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ret := make([]complex64, len(vals)/2)
	for i := range ret {
		ret[i] = complex(vals[2*i], vals[2*i+1])
	}
	return ret, nil
}
