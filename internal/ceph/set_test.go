package ceph

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/open-ortho/ceph2dicom/internal/cephconf"
	"github.com/open-ortho/ceph2dicom/internal/uid"
)

// fixtureSet lays out a paired acquisition in one directory: two
// images with sidecars and a fiducial point file.
func fixtureSet(t *testing.T) (lateral, frontal, points string) {
	t.Helper()
	dir := t.TempDir()

	sidecar := "patientName=Smith^John\npatientID=PX002348\nstudyDate=2025-11-02\nstudyTime=14:30\n"
	lateral = filepath.Join(dir, "lateral.jpg")
	frontal = filepath.Join(dir, "frontal.jpg")
	require.NoError(t, os.WriteFile(lateral, buildJPEG(16, 1000, 900, 300), 0o644))
	require.NoError(t, os.WriteFile(frontal, buildJPEG(16, 900, 1000, 300), 0o644))
	require.NoError(t, os.WriteFile(cephconf.SidecarFor(lateral), []byte(sidecar+"cephalogramType=L\n"), 0o644))
	require.NoError(t, os.WriteFile(cephconf.SidecarFor(frontal), []byte(sidecar+"cephalogramType=PA\n"), 0o644))

	points = filepath.Join(dir, "points.properties")
	pointData := "point.1.name=Sella\npoint.1.x=512\npoint.1.y=498\n" +
		"point.2.name=Nasion\npoint.2.x=640\npoint.2.y=210\n"
	require.NoError(t, os.WriteFile(points, []byte(pointData), 0o644))
	return lateral, frontal, points
}

func newFixtureSet(t *testing.T) *CephalogramSet {
	t.Helper()
	lateral, frontal, points := fixtureSet(t)
	set, err := NewSet(lateral, frontal, points,
		WithUIDGenerator(&uid.Deterministic{Seed: t.Name()}))
	require.NoError(t, err)
	require.NoError(t, set.Prepare())
	return set
}

func TestNewSet_MissingSidecarIsFatal(t *testing.T) {
	dir := t.TempDir()
	lateral := filepath.Join(dir, "lateral.jpg")
	require.NoError(t, os.WriteFile(lateral, buildJPEG(16, 100, 100, 300), 0o644))

	_, err := NewSet(lateral, lateral, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), cephconf.DocURL)
}

func TestSetPrepare_SharedStudy(t *testing.T) {
	set := newFixtureSet(t)

	latStudy, ok := set.Lateral.Dataset().GeneralStudy().StudyInstanceUID()
	require.True(t, ok)
	frontStudy, _ := set.Frontal.Dataset().GeneralStudy().StudyInstanceUID()
	assert.Equal(t, latStudy, frontStudy, "pair must share one study")
}

func TestSetPrepare_MutualBiplaneReferences(t *testing.T) {
	set := newFixtureSet(t)

	latRefs, ok := set.Lateral.Dataset().DXImage().ReferencedImages()
	require.True(t, ok)
	require.Len(t, latRefs, 1)
	assert.Equal(t, set.Frontal.SOPInstanceUID(), latRefs[0].InstanceUID)

	frontRefs, ok := set.Frontal.Dataset().DXImage().ReferencedImages()
	require.True(t, ok)
	assert.Equal(t, set.Lateral.SOPInstanceUID(), frontRefs[0].InstanceUID)
}

func TestSetPrepare_FiducialLinkedToLateral(t *testing.T) {
	set := newFixtureSet(t)
	require.NotNil(t, set.Fiducial)

	refs, ok := set.Lateral.Dataset().DXImage().ReferencedInstances()
	require.True(t, ok)
	require.Len(t, refs, 1)
	assert.Equal(t, set.Fiducial.SOPInstanceUID(), refs[0].InstanceUID)
	assert.Equal(t, "112171", refs[0].Purpose.Value)
	assert.Equal(t, "01", refs[0].Purpose.SchemeVersion)
}

func TestSetWrite_ProducesRecordsAndDICOMDIR(t *testing.T) {
	set := newFixtureSet(t)
	outDir := t.TempDir()

	files, err := set.Write(outDir, WriteOptions{})
	require.NoError(t, err)
	require.Len(t, files, 4, "lateral, frontal, fiducials, DICOMDIR")

	for _, f := range files {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}
	assert.Equal(t, "DICOMDIR", filepath.Base(files[3]))
	assert.Equal(t, "lateral-fiducials.dcm", filepath.Base(files[2]))
}

func TestDICOMDIR_OffsetsResolveToItemTags(t *testing.T) {
	set := newFixtureSet(t)
	outDir := t.TempDir()

	files, err := set.Write(outDir, WriteOptions{})
	require.NoError(t, err)

	data, err := os.ReadFile(files[3])
	require.NoError(t, err)

	ds, err := dicom.ParseFile(files[3], nil)
	require.NoError(t, err, "DICOMDIR must parse back")

	firstElem, err := ds.FindElementByTag(tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity)
	require.NoError(t, err)
	first := firstElem.Value.GetValue().([]int)[0]
	require.Greater(t, first, 132)

	// The offset must land on an item tag (FFFE,E000).
	itemTag := []byte{0xFE, 0xFF, 0x00, 0xE0}
	assert.Equal(t, itemTag, data[first:first+4])

	lastElem, err := ds.FindElementByTag(tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity)
	require.NoError(t, err)
	last := lastElem.Value.GetValue().([]int)[0]
	assert.Equal(t, itemTag, data[last:last+4])

	// The first record is the PATIENT record; its lower-level offset
	// must point at another item tag further into the file.
	lower := binary.LittleEndian.Uint32(data[first+lowerOffsetValuePos : first+lowerOffsetValuePos+4])
	require.Greater(t, int(lower), first)
	assert.Equal(t, itemTag, data[lower:lower+4])
}

func TestDICOMDIR_RecordHierarchy(t *testing.T) {
	set := newFixtureSet(t)
	outDir := t.TempDir()

	files, err := set.Write(outDir, WriteOptions{})
	require.NoError(t, err)

	ds, err := dicom.ParseFile(files[3], nil)
	require.NoError(t, err)

	seqElem, err := ds.FindElementByTag(tag.DirectoryRecordSequence)
	require.NoError(t, err)
	items := seqElem.Value.GetValue().([]*dicom.SequenceItemValue)

	var types []string
	for _, item := range items {
		for _, elem := range item.GetValue().([]*dicom.Element) {
			if elem.Tag == tag.DirectoryRecordType {
				types = append(types, elem.Value.GetValue().([]string)[0])
			}
		}
	}

	// One patient and one study; each projection keeps its own series,
	// and the fiducial record sits in a third.
	assert.Equal(t, 1, count(types, "PATIENT"))
	assert.Equal(t, 1, count(types, "STUDY"))
	assert.Equal(t, 3, count(types, "SERIES"))
	assert.GreaterOrEqual(t, count(types, "IMAGE"), 2)
	assert.Equal(t, 1, count(types, "FIDUCIAL"))
}

func count(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}

func TestLoadFiducialPoints(t *testing.T) {
	props := cephconf.FromMap(map[string]string{
		"point.2.name": "Nasion", "point.2.x": "640", "point.2.y": "210",
		"point.1.name": "Sella", "point.1.x": "512", "point.1.y": "498",
		"point.3.name": "Broken", "point.3.x": "oops", "point.3.y": "1",
	})
	points := LoadFiducialPoints(props, zerolog.Nop())

	require.Len(t, points, 2, "the malformed point is skipped")
	assert.Equal(t, "Sella", points[0].Name)
	assert.Equal(t, 512.0, points[0].X)
	assert.Equal(t, "Nasion", points[1].Name)
}

func TestFiducialSet_RoundTrip(t *testing.T) {
	set := newFixtureSet(t)
	path := filepath.Join(t.TempDir(), "fid.dcm")
	require.NoError(t, set.Fiducial.Write(path))

	ds, err := dicom.ParseFile(path, nil)
	require.NoError(t, err)

	classElem, err := ds.FindElementByTag(tag.SOPClassUID)
	require.NoError(t, err)
	assert.Equal(t, "1.2.840.10008.5.1.4.1.1.66.2", classElem.Value.GetValue().([]string)[0])

	// Patient identity copied from the referenced image.
	idElem, err := ds.FindElementByTag(tag.PatientID)
	require.NoError(t, err)
	assert.Equal(t, "PX002348", idElem.Value.GetValue().([]string)[0])

	_, err = ds.FindElementByTag(tag.FiducialSetSequence)
	assert.NoError(t, err)
}
