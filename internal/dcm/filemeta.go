package dcm

import (
	"bytes"
	"io"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// magic follows the 128-byte preamble in every Part 10 file.
const magic = "DICM"

// FileMeta describes the group 0002 header of a Part 10 file.
type FileMeta struct {
	SOPClassUID    string
	SOPInstanceUID string
	TransferSyntax string
}

// WriteFileHeader emits the preamble, "DICM" marker and the file meta
// information group. The group is always encoded explicit VR little
// endian regardless of the dataset transfer syntax, and is preceded by
// a group length element covering everything after itself.
func WriteFileHeader(w io.Writer, meta FileMeta) error {
	group := NewDataset()
	group.Put(tag.FileMetaInformationVersion, "OB", []byte{0x00, 0x01})
	group.PutString(tag.MediaStorageSOPClassUID, "UI", meta.SOPClassUID)
	group.PutString(tag.MediaStorageSOPInstanceUID, "UI", meta.SOPInstanceUID)
	group.PutString(tag.TransferSyntaxUID, "UI", meta.TransferSyntax)
	group.PutString(tag.ImplementationClassUID, "UI", ImplementationClassUID)
	group.PutString(tag.ImplementationVersionName, "SH", ImplementationVersionName)

	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteDataset(group); err != nil {
		return err
	}

	preamble := make([]byte, 128)
	if _, err := w.Write(preamble); err != nil {
		return err
	}
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}

	length := NewDataset()
	length.Put(tag.FileMetaInformationGroupLength, "UL", []int{buf.Len()})
	dw := NewWriter(w)
	if err := dw.WriteDataset(length); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
