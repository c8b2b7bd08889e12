// Package imageinfo extracts geometry and resolution from image file
// headers without decoding pixel data.
package imageinfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Format identifies the container a probed file uses.
type Format string

const (
	JPEG    Format = "jpeg"
	PNG     Format = "png"
	TIFF    Format = "tiff"
	BMP     Format = "bmp"
	Unknown Format = ""
)

// ErrUnsupportedFormat is returned when the file signature matches no
// known container.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Info holds what the header probe recovered. DPI fields are zero when
// the container carries no resolution metadata.
type Info struct {
	Format   Format
	Width    int
	Height   int
	BitDepth int
	DPIX     float64
	DPIY     float64
}

// HasDensity reports whether the header declared a physical resolution.
func (i Info) HasDensity() bool {
	return i.DPIX > 0 && i.DPIY > 0
}

// ProbeFile opens path and probes its header.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	info, err := Probe(f)
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return info, nil
}

// Probe reads enough of r to identify the container and extract
// dimensions, sample depth and pixel density. r is read sequentially;
// at most the header segments are consumed.
func Probe(r io.Reader) (Info, error) {
	br := newPeekReader(r)
	sig, err := br.peek(8)
	if err != nil {
		return Info{}, err
	}

	switch {
	case bytes.HasPrefix(sig, []byte{0xFF, 0xD8}):
		return probeJPEG(br)
	case bytes.HasPrefix(sig, []byte("\x89PNG\r\n\x1a\n")):
		return probePNG(br)
	case bytes.HasPrefix(sig, []byte("II*\x00")), bytes.HasPrefix(sig, []byte("MM\x00*")):
		return probeDecodeConfig(br, TIFF)
	case bytes.HasPrefix(sig, []byte("BM")):
		return probeDecodeConfig(br, BMP)
	default:
		return Info{}, ErrUnsupportedFormat
	}
}

// probeJPEG walks the marker stream up to the first start-of-scan,
// collecting the JFIF density from APP0 and the frame geometry from the
// baseline or progressive start-of-frame segment.
func probeJPEG(r io.Reader) (Info, error) {
	info := Info{Format: JPEG}

	var soi [2]byte
	if _, err := io.ReadFull(r, soi[:]); err != nil {
		return Info{}, err
	}

	for {
		marker, err := nextMarker(r)
		if err != nil {
			return Info{}, fmt.Errorf("jpeg marker stream: %w", err)
		}
		if marker == 0xD9 || marker == 0xDA { // EOI or SOS
			break
		}
		if marker >= 0xD0 && marker <= 0xD7 { // restart markers carry no segment
			continue
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Info{}, err
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:]))
		if segLen < 2 {
			return Info{}, fmt.Errorf("jpeg segment FF%02X has length %d", marker, segLen)
		}
		seg := make([]byte, segLen-2)
		if _, err := io.ReadFull(r, seg); err != nil {
			return Info{}, err
		}

		switch {
		case marker == 0xE0: // APP0, may be JFIF
			parseJFIF(seg, &info)
		case marker == 0xC0 || marker == 0xC1 || marker == 0xC2: // SOF0/1/2
			if len(seg) < 6 {
				return Info{}, errors.New("jpeg start-of-frame segment truncated")
			}
			precision := int(seg[0])
			info.Height = int(binary.BigEndian.Uint16(seg[1:3]))
			info.Width = int(binary.BigEndian.Uint16(seg[3:5]))
			components := int(seg[5])
			info.BitDepth = precision * components
		case marker == 0xC3 || (marker >= 0xC5 && marker <= 0xC7) ||
			(marker >= 0xC9 && marker <= 0xCB) || (marker >= 0xCD && marker <= 0xCF):
			return Info{}, fmt.Errorf("jpeg coding process FF%02X is not baseline, extended or progressive", marker)
		}

		if info.Width > 0 {
			break
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return Info{}, errors.New("jpeg stream has no start-of-frame segment")
	}
	return info, nil
}

// parseJFIF decodes the APP0 density fields. Unit 1 is dots per inch,
// unit 2 dots per centimeter, unit 0 an aspect ratio with no physical
// meaning.
func parseJFIF(seg []byte, info *Info) {
	if len(seg) < 12 || !bytes.HasPrefix(seg, []byte("JFIF\x00")) {
		return
	}
	unit := seg[7]
	xDensity := float64(binary.BigEndian.Uint16(seg[8:10]))
	yDensity := float64(binary.BigEndian.Uint16(seg[10:12]))
	switch unit {
	case 1:
		info.DPIX, info.DPIY = xDensity, yDensity
	case 2:
		info.DPIX, info.DPIY = xDensity*2.54, yDensity*2.54
	}
}

// nextMarker scans past fill bytes to the next marker code.
func nextMarker(r io.Reader) (byte, error) {
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		if b[0] != 0xFF {
			continue
		}
		for {
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return 0, err
			}
			if b[0] != 0xFF {
				break
			}
		}
		if b[0] != 0x00 { // FF 00 is a stuffed data byte
			return b[0], nil
		}
	}
}

// probePNG reads the IHDR chunk and, if present before the first IDAT,
// the pHYs chunk for physical density.
func probePNG(r io.Reader) (Info, error) {
	info := Info{Format: PNG}

	var sig [8]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return Info{}, err
	}

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Info{}, err
		}
		length := int(binary.BigEndian.Uint32(hdr[0:4]))
		chunkType := string(hdr[4:8])

		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return Info{}, err
		}
		var crc [4]byte
		if _, err := io.ReadFull(r, crc[:]); err != nil {
			return Info{}, err
		}

		switch chunkType {
		case "IHDR":
			if length < 13 {
				return Info{}, errors.New("png IHDR chunk truncated")
			}
			info.Width = int(binary.BigEndian.Uint32(body[0:4]))
			info.Height = int(binary.BigEndian.Uint32(body[4:8]))
			depth := int(body[8])
			colorType := body[9]
			switch colorType {
			case 2: // truecolor
				info.BitDepth = depth * 3
			case 4: // grayscale with alpha
				info.BitDepth = depth * 2
			case 6: // truecolor with alpha
				info.BitDepth = depth * 4
			default:
				info.BitDepth = depth
			}
		case "pHYs":
			if length >= 9 && body[8] == 1 { // pixels per meter
				const meterPerInch = 0.0254
				info.DPIX = float64(binary.BigEndian.Uint32(body[0:4])) * meterPerInch
				info.DPIY = float64(binary.BigEndian.Uint32(body[4:8])) * meterPerInch
			}
		case "IDAT", "IEND":
			return info, nil
		}
	}
	return info, nil
}

// probeDecodeConfig covers containers whose density metadata the
// standard decode path does not surface; only geometry is recovered.
func probeDecodeConfig(r io.Reader, format Format) (Info, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("%s header: %w", format, err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height, BitDepth: 8}, nil
}

// peekReader lets the signature sniff happen without consuming bytes
// the per-format probes need.
type peekReader struct {
	r      io.Reader
	buffer []byte
}

func newPeekReader(r io.Reader) *peekReader {
	return &peekReader{r: r}
}

func (p *peekReader) peek(n int) ([]byte, error) {
	for len(p.buffer) < n {
		chunk := make([]byte, n-len(p.buffer))
		read, err := p.r.Read(chunk)
		p.buffer = append(p.buffer, chunk[:read]...)
		if err != nil {
			if (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) && len(p.buffer) > 0 {
				return p.buffer, nil
			}
			return nil, err
		}
	}
	return p.buffer[:n], nil
}

func (p *peekReader) Read(b []byte) (int, error) {
	if len(p.buffer) > 0 {
		n := copy(b, p.buffer)
		p.buffer = p.buffer[n:]
		return n, nil
	}
	return p.r.Read(b)
}
