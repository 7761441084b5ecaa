// Command play renders a WAV file through the default output unit.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	coreaudio "github.com/yamadapc/coreaudio-go"
)

func main() {
	var (
		rate     int
		channels int
	)

	flag.IntVar(&rate, "rate", 0, "The sample rate in Hz (0 = use WAV file's rate)")
	flag.IntVar(&channels, "channels", 0, "The number of channels (0 = use WAV file's channels)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <wav-file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	wavFile, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening WAV file: %v\n", err)
		os.Exit(1)
	}
	defer wavFile.Close()

	decoder := wav.NewDecoder(wavFile)
	intBuf, err := decoder.FullPCMBuffer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding WAV file: %v\n", err)
		os.Exit(1)
	}

	format := intBuf.Format
	if rate == 0 {
		rate = format.SampleRate
	}
	if channels == 0 {
		channels = format.NumChannels
	}

	samples := toFloat32(intBuf, int(decoder.BitDepth))

	fmt.Printf("Playing %s: %d Hz, %d channel(s), %d frames\n",
		flag.Arg(0), rate, channels, len(samples)/channels)

	if err := play(samples, rate, channels); err != nil {
		fmt.Fprintf(os.Stderr, "Error playing: %v\n", err)
		os.Exit(1)
	}
}

// toFloat32 converts decoded integer samples to normalized 32-bit floats.
func toFloat32(buf *audio.IntBuffer, bitDepth int) []float32 {
	scale := float32(uint64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}

	return samples
}

func play(samples []float32, rate, channels int) error {
	unit, err := coreaudio.NewOutputUnit()
	if err != nil {
		return err
	}
	defer unit.Close()

	desc := coreaudio.NewStreamDescription(float64(rate), uint32(channels), coreaudio.SAMPLE_FORMAT_F32, true)
	if err := unit.SetStreamFormat(coreaudio.SCOPE_INPUT, coreaudio.ELEMENT_OUTPUT, desc); err != nil {
		return err
	}

	// The callback reads from the preloaded sample slice through an atomic
	// cursor; it performs no allocation and takes no locks.
	var pos atomic.Int64
	err = unit.SetRenderCallback(func(args coreaudio.RenderArgs) error {
		out := args.Data.Buffer(0).Float32()

		p := int(pos.Load())
		if p > len(samples) {
			p = len(samples)
		}

		n := copy(out, samples[p:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if n == 0 {
			args.Flags.Set(coreaudio.ACTION_OUTPUT_IS_SILENCE)
		}

		pos.Store(int64(p + n))

		return nil
	})
	if err != nil {
		return err
	}

	if err := unit.Initialize(); err != nil {
		return err
	}

	if err := unit.Start(); err != nil {
		return err
	}

	for int(pos.Load()) < len(samples) {
		time.Sleep(100 * time.Millisecond)
	}

	// Give the last buffer time to reach the hardware before stopping.
	time.Sleep(200 * time.Millisecond)

	return unit.Stop()
}
