package ceph

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/open-ortho/ceph2dicom/internal/dcm"
	"github.com/open-ortho/ceph2dicom/internal/uid"
)

// dirEntry is the metadata one written record contributes to the
// directory index, read back from the file itself.
type dirEntry struct {
	relPath        string
	patientID      string
	patientName    string
	studyUID       string
	studyID        string
	studyDate      string
	studyTime      string
	seriesUID      string
	seriesNumber   string
	modality       string
	sopClassUID    string
	sopInstanceUID string
	transferSyntax string
}

// dirRecord is one directory record awaiting serialization. Offsets
// are patched in after the first pass, once every record's byte
// position is known.
type dirRecord struct {
	level int // 0 patient, 1 study, 2 series, 3 image
	ds    *dcm.Dataset
	pos   int64 // absolute offset of the record's item tag
}

// WriteDICOMDIR indexes the given record files into a DICOMDIR beside
// them. Paths must lie under dir; each file is parsed back to recover
// its identity, so only files this package wrote (or any valid Part 10
// file) can be indexed. Returns the DICOMDIR path.
func WriteDICOMDIR(dir string, files []string, opts ...Option) (string, error) {
	carrier := &Cephalogram{gen: uid.Random{}, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(carrier)
	}

	entries := make([]dirEntry, 0, len(files))
	for _, path := range files {
		entry, err := readDirEntry(dir, path)
		if err != nil {
			return "", fmt.Errorf("index %s: %w", path, err)
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no records to index")
	}

	records := buildDirectoryRecords(entries)
	path := filepath.Join(dir, "DICOMDIR")

	firstOffPos, lastOffPos, err := writeDirectoryFile(path, dir, records, carrier.gen)
	if err != nil {
		return "", err
	}
	if err := patchDirectoryOffsets(path, records, firstOffPos, lastOffPos); err != nil {
		return "", err
	}

	carrier.log.Info().Str("output", path).Int("records", len(records)).Msg("DICOMDIR written")
	return path, nil
}

// readDirEntry parses a written record back and extracts the directory
// identity fields, the same verification loop the conversion tests use.
func readDirEntry(dir, path string) (dirEntry, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return dirEntry{}, fmt.Errorf("parse record: %w", err)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return dirEntry{}, err
	}

	get := func(t tag.Tag) string {
		elem, err := ds.FindElementByTag(t)
		if err != nil || elem == nil {
			return ""
		}
		return strings.Trim(elem.Value.String(), " []")
	}

	return dirEntry{
		relPath:        filepath.ToSlash(rel),
		patientID:      get(tag.PatientID),
		patientName:    get(tag.PatientName),
		studyUID:       get(tag.StudyInstanceUID),
		studyID:        get(tag.StudyID),
		studyDate:      get(tag.StudyDate),
		studyTime:      get(tag.StudyTime),
		seriesUID:      get(tag.SeriesInstanceUID),
		seriesNumber:   get(tag.SeriesNumber),
		modality:       get(tag.Modality),
		sopClassUID:    get(tag.SOPClassUID),
		sopInstanceUID: get(tag.SOPInstanceUID),
		transferSyntax: get(tag.TransferSyntaxUID),
	}, nil
}

// buildDirectoryRecords flattens the entries into the
// PATIENT/STUDY/SERIES/IMAGE record list, opening a new branch whenever
// the corresponding identifier changes. Every record starts with the
// three offset elements, zeroed until the patch pass.
func buildDirectoryRecords(entries []dirEntry) []*dirRecord {
	var records []*dirRecord
	var curPatient, curStudy, curSeries string

	offsetPrefix := func(ds *dcm.Dataset, recordType string) {
		ds.PutInt(tag.OffsetOfTheNextDirectoryRecord, "UL", 0)
		ds.PutInt(tag.RecordInUseFlag, "US", 0xFFFF)
		ds.PutInt(tag.OffsetOfReferencedLowerLevelDirectoryEntity, "UL", 0)
		ds.PutString(tag.DirectoryRecordType, "CS", recordType)
	}

	for _, e := range entries {
		if e.patientID != curPatient {
			ds := dcm.NewDataset()
			offsetPrefix(ds, "PATIENT")
			ds.PutString(tag.PatientName, "PN", e.patientName)
			ds.PutString(tag.PatientID, "LO", e.patientID)
			records = append(records, &dirRecord{level: 0, ds: ds})
			curPatient, curStudy, curSeries = e.patientID, "", ""
		}
		if e.studyUID != curStudy {
			ds := dcm.NewDataset()
			offsetPrefix(ds, "STUDY")
			ds.PutString(tag.StudyDate, "DA", e.studyDate)
			ds.PutString(tag.StudyTime, "TM", e.studyTime)
			ds.PutString(tag.StudyInstanceUID, "UI", e.studyUID)
			ds.PutString(tag.StudyID, "SH", e.studyID)
			records = append(records, &dirRecord{level: 1, ds: ds})
			curStudy, curSeries = e.studyUID, ""
		}
		if e.seriesUID != curSeries {
			ds := dcm.NewDataset()
			offsetPrefix(ds, "SERIES")
			ds.PutString(tag.Modality, "CS", e.modality)
			ds.PutString(tag.SeriesInstanceUID, "UI", e.seriesUID)
			ds.PutString(tag.SeriesNumber, "IS", e.seriesNumber)
			records = append(records, &dirRecord{level: 2, ds: ds})
			curSeries = e.seriesUID
		}

		recordType := "IMAGE"
		if e.sopClassUID == dcm.SpatialFiducialsStorage {
			recordType = "FIDUCIAL"
		}
		ds := dcm.NewDataset()
		offsetPrefix(ds, recordType)
		ds.PutString(tag.ReferencedFileID, "CS", strings.Split(e.relPath, "/")...)
		ds.PutString(tag.ReferencedSOPClassUIDInFile, "UI", e.sopClassUID)
		ds.PutString(tag.ReferencedSOPInstanceUIDInFile, "UI", e.sopInstanceUID)
		ds.PutString(tag.ReferencedTransferSyntaxUIDInFile, "UI", e.transferSyntax)
		records = append(records, &dirRecord{level: 3, ds: ds})
	}
	return records
}

// countingWriter tracks the absolute byte position of everything
// written through it, so record item offsets are known on the fly.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeDirectoryFile is the first pass: the full DICOMDIR with all
// offset fields zero. It returns the byte positions of the root
// first/last offset values and fills in each record's item position.
func writeDirectoryFile(path, dir string, records []*dirRecord, gen uid.Generator) (int64, int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := &countingWriter{w: f}
	if err := dcm.WriteFileHeader(cw, dcm.FileMeta{
		SOPClassUID:    dcm.MediaStorageDirectoryStorage,
		SOPInstanceUID: gen.New(),
		TransferSyntax: dcm.ExplicitVRLittleEndian,
	}); err != nil {
		return 0, 0, fmt.Errorf("write file meta: %w", err)
	}

	filesetID := strings.ToUpper(filepath.Base(dir))
	if len(filesetID) > 16 {
		filesetID = filesetID[:16]
	}

	w := dcm.NewWriter(cw)
	header := dcm.NewDataset()
	header.PutString(tag.FileSetID, "CS", filesetID)
	if err := w.WriteDataset(header); err != nil {
		return 0, 0, err
	}

	// Value of a short-form element sits 8 bytes past its tag.
	firstOffPos := cw.n + 8
	offsets := dcm.NewDataset()
	offsets.PutInt(tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, "UL", 0)
	if err := w.WriteDataset(offsets); err != nil {
		return 0, 0, err
	}
	lastOffPos := cw.n + 8
	offsets = dcm.NewDataset()
	offsets.PutInt(tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity, "UL", 0)
	offsets.PutInt(tag.FileSetConsistencyFlag, "US", 0)
	if err := w.WriteDataset(offsets); err != nil {
		return 0, 0, err
	}

	if err := w.BeginSequence(tag.DirectoryRecordSequence); err != nil {
		return 0, 0, err
	}
	for _, rec := range records {
		rec.pos = cw.n
		if err := w.BeginItem(); err != nil {
			return 0, 0, err
		}
		if err := w.WriteDataset(rec.ds); err != nil {
			return 0, 0, err
		}
		if err := w.EndItem(); err != nil {
			return 0, 0, err
		}
	}
	if err := w.EndSequence(); err != nil {
		return 0, 0, err
	}
	if err := f.Close(); err != nil {
		return 0, 0, fmt.Errorf("close %s: %w", path, err)
	}
	return firstOffPos, lastOffPos, nil
}

// Byte positions of the offset values inside a record item: the item
// tag and length take 8 bytes, then (0004,1400) UL holds its value 8
// bytes into the element, and (0004,1420) UL follows the 12-byte next
// offset element and the 10-byte in-use flag element.
const (
	nextOffsetValuePos  = 8 + 8
	lowerOffsetValuePos = 8 + 12 + 10 + 8
)

// patchDirectoryOffsets is the second pass: with every record's item
// position known, link root first/last, sibling chains and parent-child
// references by rewriting the zeroed offset values in place.
func patchDirectoryOffsets(path string, records []*dirRecord, firstOffPos, lastOffPos int64) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for patching: %w", path, err)
	}
	defer f.Close()

	patch := func(pos int64, value uint32) error {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		return binary.Write(f, binary.LittleEndian, value)
	}

	var firstRoot, lastRoot int64
	for i, rec := range records {
		if rec.level == 0 {
			if firstRoot == 0 {
				firstRoot = rec.pos
			}
			lastRoot = rec.pos
		}

		// Next sibling: the next record at the same level before the
		// branch closes.
		for j := i + 1; j < len(records); j++ {
			if records[j].level < rec.level {
				break
			}
			if records[j].level == rec.level {
				if err := patch(rec.pos+nextOffsetValuePos, uint32(records[j].pos)); err != nil {
					return err
				}
				break
			}
		}

		// First child: the immediately following record one level down.
		if i+1 < len(records) && records[i+1].level == rec.level+1 {
			if err := patch(rec.pos+lowerOffsetValuePos, uint32(records[i+1].pos)); err != nil {
				return err
			}
		}
	}

	if err := patch(firstOffPos, uint32(firstRoot)); err != nil {
		return err
	}
	if err := patch(lastOffPos, uint32(lastRoot)); err != nil {
		return err
	}
	return f.Close()
}
