//go:build bench

package docmap

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"testing"

	"go.uber.org/zap"
)

// benchPNG encodes a blank raster of the given pixel size.
func benchPNG(b *testing.B, w, h int) []byte {
	b.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := png.Encode(&buf, img); err != nil {
		b.Fatalf("encoding bench image: %v", err)
	}
	return buf.Bytes()
}

// benchSections builds n sections that each carry a text and a diagram
// raster, the shape a real board capture produces.
func benchSections(n int, raster []byte, w, h int) []sectionResult {
	sections := make([]sectionResult, n)
	for i := range sections {
		sections[i] = sectionResult{
			Index:   i,
			Text:    &blockResult{Raster: &Raster{Data: raster, Width: w, Height: h, Fidelity: 1.0}},
			Diagram: &blockResult{Raster: &Raster{Data: raster, Width: w, Height: h, Fidelity: 1.0}},
		}
	}
	return sections
}

// BenchmarkAssemble measures document assembly at several board sizes.
func BenchmarkAssemble(b *testing.B) {
	counts := []int{1, 8, 32}
	raster := benchPNG(b, 1900, 400)
	asm := newAssembler(zap.NewNop())

	for _, n := range counts {
		b.Run(fmt.Sprintf("sections_%d", n), func(b *testing.B) {
			sections := benchSections(n, raster, 1900, 400)
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				pdf, _, _, err := asm.assemble("bench", sections)
				if err != nil {
					b.Fatalf("assemble() error = %v", err)
				}
				_ = pdf
			}
		})
	}
}

// BenchmarkCapWidth measures the downsample guard, both the passthrough
// and the resample path.
func BenchmarkCapWidth(b *testing.B) {
	widths := []int{1900, 3200}

	for _, w := range widths {
		b.Run(fmt.Sprintf("width_%d", w), func(b *testing.B) {
			data := benchPNG(b, w, 400)
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				out, err := capWidth(data, w)
				if err != nil {
					b.Fatalf("capWidth() error = %v", err)
				}
				_ = out
			}
		})
	}
}
