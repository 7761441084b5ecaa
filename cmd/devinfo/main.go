// Command devinfo lists the system's audio devices and dumps the default
// output unit's negotiated stream parameters.
package main

import (
	"fmt"
	"os"

	coreaudio "github.com/yamadapc/coreaudio-go"
)

func main() {
	devices, err := coreaudio.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error enumerating devices: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Audio devices:")
	for _, dev := range devices {
		fmt.Printf("  [%d] %-32s %.0f Hz  in:%d out:%d\n",
			dev.ID, dev.Name, dev.SampleRate, dev.InputChannels, dev.OutputChannels)
	}

	if dev, err := coreaudio.DefaultOutputDevice(); err == nil {
		fmt.Printf("Default output: [%d] %s\n", dev.ID, dev.Name)
	}
	if dev, err := coreaudio.DefaultInputDevice(); err == nil {
		fmt.Printf("Default input:  [%d] %s\n", dev.ID, dev.Name)
	}

	unit, err := coreaudio.NewOutputUnit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output unit: %v\n", err)
		os.Exit(1)
	}
	defer unit.Close()

	fmt.Println("\nDefault output unit:")

	if format, err := unit.StreamFormat(coreaudio.SCOPE_INPUT, coreaudio.ELEMENT_OUTPUT); err == nil {
		fmt.Printf("  Client format:   %.0f Hz, %d channel(s), %d bits, flags %#x\n",
			format.SampleRate, format.ChannelsPerFrame, format.BitsPerChannel, uint32(format.FormatFlags))
	}

	if rate, err := unit.SampleRate(); err == nil {
		fmt.Printf("  Sample rate:     %.0f Hz\n", rate)
	}

	if frames, err := coreaudio.GetProperty[uint32](unit,
		coreaudio.AU_PROP_MAX_FRAMES_PER_SLICE, coreaudio.SCOPE_GLOBAL, coreaudio.ELEMENT_OUTPUT); err == nil {
		fmt.Printf("  Max slice:       %d frames\n", frames)
	}

	size, writable, err := unit.PropertyInfo(coreaudio.AU_PROP_STREAM_FORMAT,
		coreaudio.SCOPE_INPUT, coreaudio.ELEMENT_OUTPUT)
	if err == nil {
		fmt.Printf("  Format property: %d bytes, writable=%v\n", size, writable)
	}
}
