package capture

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// DecodeSamples converts interleaved little endian int16 I/Q bytes to complex
// samples multiplied by scale.
func DecodeSamples(data []byte, scale float64) ([]complex128, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of I/Q pairs", ErrTruncatedData, len(data))
	}
	ret := make([]complex128, len(data)/4)
	for i := range ret {
		re := int16(binary.LittleEndian.Uint16(data[4*i:]))
		im := int16(binary.LittleEndian.Uint16(data[4*i+2:]))
		ret[i] = complex(float64(re)*scale, float64(im)*scale)
	}
	return ret, nil
}

func ReadSamples(path string, scale float64) ([]complex128, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret, err := DecodeSamples(data, scale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ret, nil
}

func quantize(v, scale float64) int16 {
	q := math.Round(v / scale)
	switch {
	case math.IsNaN(q):
		return 0
	case q > math.MaxInt16:
		return math.MaxInt16
	case q < math.MinInt16:
		return math.MinInt16
	}
	return int16(q)
}

// EncodeSamples writes samples divided by scale as int16 I/Q, saturating
// values outside the int16 range.
func EncodeSamples(w io.Writer, samples []complex128, scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("scale factor must be positive, got %g", scale)
	}
	bw := bufio.NewWriter(w)
	var buf [4]byte
	for _, v := range samples {
		binary.LittleEndian.PutUint16(buf[0:], uint16(quantize(real(v), scale)))
		binary.LittleEndian.PutUint16(buf[2:], uint16(quantize(imag(v), scale)))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WriteSamples(path string, samples []complex128, scale float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeSamples(f, samples, scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FullScale is the scale factor that maps the largest I or Q magnitude in
// samples to the int16 maximum.
func FullScale(samples []complex128) float64 {
	var peak float64
	for _, v := range samples {
		peak = math.Max(peak, math.Max(math.Abs(real(v)), math.Abs(imag(v))))
	}
	if peak == 0 {
		return 1
	}
	return peak / math.MaxInt16
}

type Capture struct {
	Header  Header
	Samples []complex128
}

// Paths returns the header and data file paths of capture base in dir.
func Paths(dir, base string) (header, data string) {
	p := filepath.Join(dir, base)
	return p + HeaderExt, p + DataExt
}

// Load reads base.xhdr and base.xdat from dir. Data beyond the header's sample
// count is ignored; less is an error.
func Load(dir, base string) (*Capture, error) {
	headerPath, dataPath := Paths(dir, base)
	h, err := ReadHeader(headerPath)
	if err != nil {
		return nil, err
	}
	samples, err := ReadSamples(dataPath, h.ScaleFactor)
	if err != nil {
		return nil, err
	}
	if len(samples) < h.Samples {
		return nil, fmt.Errorf("%s: %w: header lists %d samples, file has %d", dataPath, ErrTruncatedData, h.Samples, len(samples))
	}
	return &Capture{Header: h, Samples: samples[:h.Samples]}, nil
}

// Save writes c as base.xhdr and base.xdat in dir. The header's sample count
// is taken from c.Samples, and a zero scale factor is replaced by FullScale.
func Save(dir, base string, c *Capture) error {
	h := c.Header
	h.Samples = len(c.Samples)
	if h.ScaleFactor == 0 {
		h.ScaleFactor = FullScale(c.Samples)
	}
	if h.Name == "" {
		h.Name = base
	}

	headerPath, dataPath := Paths(dir, base)
	if err := WriteSamples(dataPath, c.Samples, h.ScaleFactor); err != nil {
		return err
	}
	return WriteHeader(headerPath, h)
}
