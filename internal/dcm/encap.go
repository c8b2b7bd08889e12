package dcm

import (
	"fmt"
	"io"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// WriteEncapsulatedPixelData streams length bytes from r as a
// single-frame encapsulated pixel data element: undefined-length OB
// header, a zero-length basic offset table item, one fragment item
// whose declared length is the payload rounded up to even, the payload
// itself with at most one NUL pad, and a sequence delimitation item.
// The compressed bytes are copied verbatim, never transcoded.
func (w *Writer) WriteEncapsulatedPixelData(r io.Reader, length int64) error {
	if err := w.writeTag(tag.PixelData); err != nil {
		return err
	}
	if err := w.bytes([]byte("OB")); err != nil {
		return err
	}
	if err := w.uint16(0); err != nil {
		return err
	}
	if err := w.uint32(undefinedLength); err != nil {
		return err
	}

	// Basic offset table, empty for a single frame.
	if err := w.delimiter(itemTag, 0); err != nil {
		return err
	}

	padded := (length + 1) &^ 1
	if err := w.delimiter(itemTag, uint32(padded)); err != nil {
		return err
	}
	n, err := io.Copy(w.w, io.LimitReader(r, length))
	if err != nil {
		return err
	}
	if n != length {
		return fmt.Errorf("pixel data truncated: copied %d of %d bytes", n, length)
	}
	if padded != length {
		if err := w.bytes([]byte{0x00}); err != nil {
			return err
		}
	}

	return w.delimiter(seqDelimTag, 0)
}

// WriteNativePixelData writes uncompressed pixel data with an explicit
// length, for datasets carried in explicit VR little endian.
func (w *Writer) WriteNativePixelData(data []byte) error {
	return w.WriteElement(&Attribute{Tag: tag.PixelData, VR: "OB", Value: data})
}
