package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gain struct {
	g complex64
}

func (g *gain) WorkBuffer(input, output []complex64) int {
	for i, v := range input {
		output[i] = v * g.g
	}
	return len(input)
}

func (g *gain) PredictOutputSize(n int) int { return n }

// decimate keeps every factor-th sample across calls.
type decimate struct {
	factor int
	phase  int
}

func (d *decimate) WorkBuffer(input, output []complex64) int {
	n := 0
	for _, v := range input {
		if d.phase == 0 {
			output[n] = v
			n++
		}
		d.phase = (d.phase + 1) % d.factor
	}
	return n
}

func (d *decimate) PredictOutputSize(n int) int { return n/d.factor + 1 }

func ramp(n int) []complex64 {
	ret := make([]complex64, n)
	for i := range ret {
		ret[i] = complex(float32(i), -float32(i))
	}
	return ret
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
	}{
		{"single chunk", 1 << 16},
		{"odd chunks", 7},
		{"one sample chunks", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor("test", WithChunkSize(tt.chunkSize))
			p.AddBlock(NewDSPWorkerCC("gain", "Gain", 100, 100, &gain{g: 2}))
			p.AddBlock(NewDSPWorkerCC("decimate", "Decimate", 100, 50, &decimate{factor: 2}))

			metrics := make(map[string]interface{})
			out, err := p.Process(context.Background(), ramp(101), metrics)
			require.NoError(t, err)
			require.Len(t, out, 51)
			for i, v := range out {
				assert.Equal(t, complex(float32(4*i), -float32(4*i)), v)
			}

			assert.Contains(t, metrics, "gain_duration")
			assert.Contains(t, metrics, "decimate_duration")
			assert.Equal(t, 100, p.InputRate())
			assert.Equal(t, 50, p.OutputRate())
		})
	}
}

func TestInitialize(t *testing.T) {
	p := NewProcessor("empty")
	assert.Error(t, p.Initialize())
	assert.Equal(t, 0, p.InputRate())

	p = NewProcessor("mismatch")
	p.AddBlock(NewDSPWorkerCC("a", "A", 100, 50, &decimate{factor: 2}))
	p.AddBlock(NewDSPWorkerCC("b", "B", 100, 100, &gain{g: 1}))
	err := p.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate mismatch")

	_, err = p.Process(context.Background(), ramp(10), nil)
	assert.Error(t, err)

	p = NewProcessor("chunk", WithChunkSize(0))
	p.AddBlock(NewDSPWorkerCC("a", "A", 1, 1, &gain{g: 1}))
	assert.Error(t, p.Initialize())
}

func TestProcessCancelled(t *testing.T) {
	p := NewProcessor("cancel")
	p.AddBlock(NewDSPWorkerCC("a", "A", 1, 1, &gain{g: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, ramp(10), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpectrumDiagnostics(t *testing.T) {
	type emitted struct {
		name, title string
		n           int
	}
	var got []emitted
	diag := func(name, title string, values []float64) {
		got = append(got, emitted{name, title, len(values)})
	}

	p := NewProcessor("resample", WithDiagnostics(diag), WithChunkSize(100))
	p.AddBlock(NewDSPWorkerCC("channel_filter", "Channel Filter", 1, 1, &gain{g: 1}, WithSpectrumPlot(64)))
	p.AddBlock(NewDSPWorkerCC("plain", "Plain", 1, 1, &gain{g: 1}))

	_, err := p.Process(context.Background(), ramp(1000), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, emitted{"resample_01_channel_filter", "01. Channel Filter", 64}, got[0])
}
