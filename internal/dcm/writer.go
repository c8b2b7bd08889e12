package dcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Item framing tags used by sequences, encapsulated pixel data and
// DICOMDIR records.
var (
	itemTag      = tag.Tag{Group: 0xFFFE, Element: 0xE000}
	itemDelimTag = tag.Tag{Group: 0xFFFE, Element: 0xE00D}
	seqDelimTag  = tag.Tag{Group: 0xFFFE, Element: 0xE0DD}
)

// undefinedLength marks elements whose extent is closed by a delimiter
// instead of a byte count.
const undefinedLength uint32 = 0xFFFFFFFF

// VRs that use the 32-bit length form in explicit VR encoding.
var longFormVRs = map[string]bool{
	"OB": true, "OW": true, "OF": true, "OD": true, "OL": true,
	"SQ": true, "UC": true, "UR": true, "UT": true, "UN": true,
}

// Writer serializes attributes in explicit VR little endian, the
// encoding shared by every transfer syntax this package emits (the
// JPEG baseline syntax encodes its dataset the same way, only the pixel
// data element differs).
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) bytes(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

func (w *Writer) uint16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return w.bytes(buf[:])
}

func (w *Writer) uint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return w.bytes(buf[:])
}

func (w *Writer) writeTag(t tag.Tag) error {
	if err := w.uint16(t.Group); err != nil {
		return err
	}
	return w.uint16(t.Element)
}

// delimiter writes one of the item/sequence framing tags with the given
// length field.
func (w *Writer) delimiter(t tag.Tag, length uint32) error {
	if err := w.writeTag(t); err != nil {
		return err
	}
	return w.uint32(length)
}

// WriteElement serializes a single attribute, including sequences.
func (w *Writer) WriteElement(a *Attribute) error {
	if a.VR == "SQ" {
		return w.writeSequence(a)
	}

	payload, err := encodeValue(a)
	if err != nil {
		return fmt.Errorf("encode (%04X,%04X): %w", a.Tag.Group, a.Tag.Element, err)
	}

	if err := w.writeTag(a.Tag); err != nil {
		return err
	}
	if err := w.bytes([]byte(a.VR)); err != nil {
		return err
	}
	if longFormVRs[a.VR] {
		if err := w.uint16(0); err != nil { // reserved
			return err
		}
		if err := w.uint32(uint32(len(payload))); err != nil {
			return err
		}
	} else {
		if len(payload) > 0xFFFF {
			return fmt.Errorf("value of (%04X,%04X) exceeds 16-bit length", a.Tag.Group, a.Tag.Element)
		}
		if err := w.uint16(uint16(len(payload))); err != nil {
			return err
		}
	}
	return w.bytes(payload)
}

// writeSequence emits an undefined-length sequence: every item is itself
// undefined length and closed by an item delimitation item, the sequence
// by a sequence delimitation item.
func (w *Writer) writeSequence(a *Attribute) error {
	items, ok := a.Value.([]*Dataset)
	if !ok {
		return fmt.Errorf("sequence (%04X,%04X) holds %T, want []*Dataset", a.Tag.Group, a.Tag.Element, a.Value)
	}

	if err := w.writeTag(a.Tag); err != nil {
		return err
	}
	if err := w.bytes([]byte("SQ")); err != nil {
		return err
	}
	if err := w.uint16(0); err != nil {
		return err
	}
	if err := w.uint32(undefinedLength); err != nil {
		return err
	}

	for _, item := range items {
		if err := w.delimiter(itemTag, undefinedLength); err != nil {
			return err
		}
		if err := w.WriteDataset(item); err != nil {
			return err
		}
		if err := w.delimiter(itemDelimTag, 0); err != nil {
			return err
		}
	}
	return w.delimiter(seqDelimTag, 0)
}

// BeginSequence opens an undefined-length sequence element for callers
// that stream items one at a time, as the directory record writer does.
func (w *Writer) BeginSequence(t tag.Tag) error {
	if err := w.writeTag(t); err != nil {
		return err
	}
	if err := w.bytes([]byte("SQ")); err != nil {
		return err
	}
	if err := w.uint16(0); err != nil {
		return err
	}
	return w.uint32(undefinedLength)
}

// BeginItem opens an undefined-length sequence item.
func (w *Writer) BeginItem() error {
	return w.delimiter(itemTag, undefinedLength)
}

// EndItem closes an item opened with BeginItem.
func (w *Writer) EndItem() error {
	return w.delimiter(itemDelimTag, 0)
}

// EndSequence closes a sequence opened with BeginSequence.
func (w *Writer) EndSequence() error {
	return w.delimiter(seqDelimTag, 0)
}

// WriteDataset serializes all attributes in tag order.
func (w *Writer) WriteDataset(ds *Dataset) error {
	for _, t := range ds.SortedTags() {
		a, _ := ds.Get(t)
		if err := w.WriteElement(a); err != nil {
			return fmt.Errorf("write element (%04X,%04X): %w", t.Group, t.Element, err)
		}
	}
	return nil
}

// encodeValue renders an attribute value as an even-length byte payload.
func encodeValue(a *Attribute) ([]byte, error) {
	switch v := a.Value.(type) {
	case []string:
		joined := strings.Join(v, "\\")
		if len(joined)%2 != 0 {
			// UIDs pad with NUL, text VRs with space.
			if a.VR == "UI" {
				joined += "\x00"
			} else {
				joined += " "
			}
		}
		return []byte(joined), nil
	case []int:
		return encodeInts(a.VR, v)
	case []float64:
		return encodeFloats(a.VR, v)
	case []byte:
		if len(v)%2 != 0 {
			padded := make([]byte, len(v)+1)
			copy(padded, v)
			return padded, nil
		}
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", a.Value)
	}
}

func encodeInts(vr string, values []int) ([]byte, error) {
	switch vr {
	case "US":
		buf := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
		}
		return buf, nil
	case "SS":
		buf := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(v)))
		}
		return buf, nil
	case "UL":
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
		}
		return buf, nil
	case "SL":
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(v)))
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("integer value with VR %s", vr)
	}
}

func encodeFloats(vr string, values []float64) ([]byte, error) {
	switch vr {
	case "FL":
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
		}
		return buf, nil
	case "FD":
		buf := make([]byte, 8*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("float value with VR %s", vr)
	}
}
