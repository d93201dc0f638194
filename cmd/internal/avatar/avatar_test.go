package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_ScalesToCanonicalPNG(t *testing.T) {
	for _, size := range []struct{ w, h int }{
		{40, 40},
		{800, 600},
		{250, 250},
	} {
		out, err := Normalize(encodePNG(t, size.w, size.h))
		if err != nil {
			t.Fatalf("Normalize(%dx%d): %v", size.w, size.h, err)
		}

		img, err := png.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("output is not PNG: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != Width || b.Dy() != Height {
			t.Fatalf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), Width, Height)
		}
	}
}

func TestNormalize_RejectsUndecodableBytes(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("definitely not an image"),
		{0x89, 0x50, 0x4e}, // truncated PNG signature
	} {
		if _, err := Normalize(data); err != ErrBadImage {
			t.Fatalf("Normalize(%q): got %v, want ErrBadImage", data, err)
		}
	}
}

// gif1x1 is a complete, valid 1x1 GIF89a image, spelled out as bytes so this
// test cannot accidentally register the gif decoder by importing image/gif.
var gif1x1 = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, // 1x1, global color table
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, // palette
	0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, // graphic control
	0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, // descriptor
	0x02, 0x02, 0x44, 0x01, 0x00, // image data
	0x3b, // trailer
}

func TestNormalize_RejectsGIF(t *testing.T) {
	// Only jpeg and png decoders are registered; a well-formed GIF must fail
	// like any other undecodable payload.
	if _, err := Normalize(gif1x1); err != ErrBadImage {
		t.Fatalf("got %v, want ErrBadImage", err)
	}
	if AllowedFilename("animation.gif") {
		t.Fatalf("gif extension should not be allowed")
	}
}

func TestNormalize_RejectsOversizedPayload(t *testing.T) {
	if _, err := Normalize(make([]byte, MaxUploadBytes+1)); err != ErrTooLarge {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}

func TestAllowedFilename(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"me.jpg", true},
		{"me.JPEG", true},
		{"me.png", true},
		{"archive.pdf", false},
		{"no-extension", false},
		{"sneaky.png.exe", false},
	}
	for _, tc := range cases {
		if got := AllowedFilename(tc.name); got != tc.want {
			t.Fatalf("AllowedFilename(%q)=%v want %v", tc.name, got, tc.want)
		}
	}
}
