package ceph

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/open-ortho/ceph2dicom/internal/cephconf"
	"github.com/open-ortho/ceph2dicom/internal/dcm"
	"github.com/open-ortho/ceph2dicom/internal/uid"
)

// FiducialPoint is one named landmark in image pixel coordinates.
type FiducialPoint struct {
	Name string
	X    float64
	Y    float64
}

// LoadFiducialPoints extracts landmarks from a point file. Keys follow
// the point.N.name / point.N.x / point.N.y convention; points with a
// malformed coordinate are skipped with a warning. Results are ordered
// by index.
func LoadFiducialPoints(p *cephconf.Properties, log zerolog.Logger) []FiducialPoint {
	var indices []int
	seen := map[int]bool{}
	for _, key := range p.Keys() {
		var n int
		if _, err := fmt.Sscanf(key, "point.%d.", &n); err == nil && !seen[n] {
			seen[n] = true
			indices = append(indices, n)
		}
	}
	sort.Ints(indices)

	var points []FiducialPoint
	for _, n := range indices {
		prefix := fmt.Sprintf("point.%d.", n)
		name := p.Get(prefix + "name")
		x, errX := strconv.ParseFloat(p.Get(prefix+"x"), 64)
		y, errY := strconv.ParseFloat(p.Get(prefix+"y"), 64)
		if name == "" || errX != nil || errY != nil {
			log.Warn().Int("point", n).Msg("fiducial point incomplete or not numeric, skipping")
			continue
		}
		points = append(points, FiducialPoint{Name: name, X: x, Y: y})
	}
	return points
}

// FiducialSet is a spatial fiducials record collecting landmark points
// measured on one cephalogram.
type FiducialSet struct {
	ds     *dcm.Dataset
	points []FiducialPoint
	gen    uid.Generator
	log    zerolog.Logger
}

// NewFiducialSet builds a record for the given points.
func NewFiducialSet(points []FiducialPoint, opts ...Option) *FiducialSet {
	// Reuse the cephalogram options to keep one configuration surface.
	carrier := &Cephalogram{gen: uid.Random{}, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(carrier)
	}

	f := &FiducialSet{
		ds:     dcm.NewDataset(),
		points: points,
		gen:    carrier.gen,
		log:    carrier.log,
	}
	sop := f.ds.SOPCommon()
	sop.SetSOPClassUID(dcm.SpatialFiducialsStorage)
	sop.SetSOPInstanceUID(f.gen.New())
	sop.SetSpecificCharacterSet("ISO_IR 100")

	series := f.ds.DXSeries()
	series.SetModality("FID")
	series.SetSeriesInstanceUID(f.gen.New())
	series.SetSeriesNumber("1")

	now := time.Now()
	f.ds.PutString(tag.ContentDate, "DA", now.Format("20060102"))
	f.ds.PutString(tag.ContentTime, "TM", now.Format("150405"))
	f.ds.PutString(tag.ContentLabel, "CS", "CEPHALOMETRIC")
	f.ds.PutString(tag.ContentDescription, "LO", "Cephalometric landmark points")
	f.ds.PutString(tag.InstanceNumber, "IS", "1")
	return f
}

// SOPInstanceUID returns the record's instance identifier.
func (f *FiducialSet) SOPInstanceUID() string {
	v, _ := f.ds.SOPCommon().SOPInstanceUID()
	return v
}

// SetReferencedImage ties the fiducial set to the cephalogram its
// points were measured on: patient and study identity are copied and
// every point references the image instance.
func (f *FiducialSet) SetReferencedImage(c *Cephalogram) {
	for _, t := range []tag.Tag{
		tag.PatientName, tag.PatientID, tag.PatientSex, tag.PatientBirthDate,
		tag.StudyInstanceUID, tag.StudyDate, tag.StudyTime, tag.StudyID,
		tag.AccessionNumber, tag.ReferringPhysicianName,
	} {
		if attr, ok := c.Dataset().Get(t); ok {
			f.ds.Put(attr.Tag, attr.VR, attr.Value)
		}
	}

	imageRef := dcm.SOPReference{
		ClassUID:    dcm.DigitalXRayForProcessing,
		InstanceUID: c.SOPInstanceUID(),
	}

	fiducials := make([]*dcm.Dataset, 0, len(f.points))
	for i, pt := range f.points {
		coords := dcm.NewDataset()
		coords.PutSequence(tag.ReferencedImageSequence, imageRef.Item())
		coords.Put(tag.GraphicData, "FL", []float64{pt.X, pt.Y})

		item := dcm.NewDataset()
		item.PutString(tag.FiducialIdentifier, "SH", fmt.Sprintf("%d", i+1))
		item.PutString(tag.FiducialDescription, "ST", pt.Name)
		item.PutString(tag.ShapeType, "CS", "POINT")
		item.PutSequence(tag.GraphicCoordinatesDataSequence, coords)
		fiducials = append(fiducials, item)
	}

	set := dcm.NewDataset()
	set.PutSequence(tag.ReferencedImageSequence, imageRef.Item())
	set.PutSequence(tag.FiducialSequence, fiducials...)
	f.ds.PutSequence(tag.FiducialSetSequence, set)
}

// Write serializes the record in explicit VR little endian.
func (f *FiducialSet) Write(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	sopInstance, _ := f.ds.SOPCommon().SOPInstanceUID()
	if err := dcm.WriteFileHeader(out, dcm.FileMeta{
		SOPClassUID:    dcm.SpatialFiducialsStorage,
		SOPInstanceUID: sopInstance,
		TransferSyntax: dcm.ExplicitVRLittleEndian,
	}); err != nil {
		return fmt.Errorf("write file meta: %w", err)
	}
	if err := dcm.NewWriter(out).WriteDataset(f.ds); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	f.log.Info().Str("output", path).Int("points", len(f.points)).Msg("fiducial set written")
	return nil
}
