// Package capture reads and writes .xdat/.xhdr capture pairs: interleaved
// little endian int16 I/Q samples next to an XML header.
package capture

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	HeaderExt = ".xhdr"
	DataExt   = ".xdat"
)

var (
	ErrMalformedHeader = errors.New("malformed capture header")
	ErrTruncatedData   = errors.New("truncated capture data")
)

// Header is the part of an .xhdr file the receiver needs.
type Header struct {
	Name            string
	CenterFrequency float64
	SampleRate      float64
	Span            float64
	// ScaleFactor converts int16 sample values to volts.
	ScaleFactor float64
	Samples     int
}

type xmlCapture struct {
	Name            string `xml:"name,attr,omitempty"`
	CenterFrequency string `xml:"center_frequency,attr"`
	SampleRate      string `xml:"sample_rate,attr"`
	Span            string `xml:"span,attr"`
	ScaleFactor     string `xml:"acq_scale_factor,attr"`
}

type xmlData struct {
	Name         string `xml:"name,attr,omitempty"`
	Channels     string `xml:"channels,attr"`
	Encoding     string `xml:"encoding,attr"`
	Interleaved  string `xml:"interleaved,attr"`
	LittleEndian string `xml:"little_endian,attr"`
	Resolution   string `xml:"resolution,attr"`
	Signed       string `xml:"signed,attr"`
	Samples      string `xml:"samples,attr"`
}

type xmlHeader struct {
	XMLName   xml.Name
	Version   string       `xml:"header_version,attr,omitempty"`
	Captures  []xmlCapture `xml:"captures>capture"`
	DataFiles []xmlData    `xml:"data_files>data"`
}

// the only layout the sample reader understands
var dataFormat = xmlData{
	Channels:     "1",
	Encoding:     "int16",
	Interleaved:  "true",
	LittleEndian: "true",
	Resolution:   "16",
	Signed:       "true",
}

func parseFloat(attr, value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedHeader, attr)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedHeader, attr, err)
	}
	return v, nil
}

func checkFormat(got xmlData) error {
	checks := []struct{ attr, got, want string }{
		{"channels", got.Channels, dataFormat.Channels},
		{"encoding", got.Encoding, dataFormat.Encoding},
		{"interleaved", got.Interleaved, dataFormat.Interleaved},
		{"little_endian", got.LittleEndian, dataFormat.LittleEndian},
		{"resolution", got.Resolution, dataFormat.Resolution},
		{"signed", got.Signed, dataFormat.Signed},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: %s is %q, only %q is supported", ErrMalformedHeader, c.attr, c.got, c.want)
		}
	}
	return nil
}

// DecodeHeader parses an .xhdr document. The first capture and data_files
// entries are used.
func DecodeHeader(r io.Reader) (Header, error) {
	var doc xmlHeader
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if len(doc.Captures) == 0 {
		return Header{}, fmt.Errorf("%w: no captures/capture element", ErrMalformedHeader)
	}
	if len(doc.DataFiles) == 0 {
		return Header{}, fmt.Errorf("%w: no data_files/data element", ErrMalformedHeader)
	}
	c, d := doc.Captures[0], doc.DataFiles[0]

	if err := checkFormat(d); err != nil {
		return Header{}, err
	}

	var (
		h   = Header{Name: c.Name}
		err error
	)
	if h.SampleRate, err = parseFloat("sample_rate", c.SampleRate); err != nil {
		return Header{}, err
	}
	if h.SampleRate <= 0 {
		return Header{}, fmt.Errorf("%w: sample_rate %g", ErrMalformedHeader, h.SampleRate)
	}
	if h.ScaleFactor, err = parseFloat("acq_scale_factor", c.ScaleFactor); err != nil {
		return Header{}, err
	}
	if h.CenterFrequency, err = parseFloat("center_frequency", c.CenterFrequency); err != nil {
		return Header{}, err
	}
	// span is optional; the full sample rate is assumed occupied
	h.Span = h.SampleRate
	if c.Span != "" {
		if h.Span, err = parseFloat("span", c.Span); err != nil {
			return Header{}, err
		}
	}
	if d.Samples == "" {
		return Header{}, fmt.Errorf("%w: missing samples", ErrMalformedHeader)
	}
	if h.Samples, err = strconv.Atoi(d.Samples); err != nil || h.Samples < 0 {
		return Header{}, fmt.Errorf("%w: samples %q", ErrMalformedHeader, d.Samples)
	}
	return h, nil
}

func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	h, err := DecodeHeader(f)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func EncodeHeader(w io.Writer, h Header) error {
	data := dataFormat
	data.Name = h.Name
	data.Samples = strconv.Itoa(h.Samples)

	doc := xmlHeader{
		XMLName: xml.Name{Local: "xcom_header"},
		Version: "1.0",
		Captures: []xmlCapture{{
			Name:            h.Name,
			CenterFrequency: formatFloat(h.CenterFrequency),
			SampleRate:      formatFloat(h.SampleRate),
			Span:            formatFloat(h.Span),
			ScaleFactor:     formatFloat(h.ScaleFactor),
		}},
		DataFiles: []xmlData{data},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func WriteHeader(path string, h Header) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeHeader(f, h); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
