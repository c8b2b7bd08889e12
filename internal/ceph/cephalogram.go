// Package ceph builds Digital X-Ray Image For Processing records from
// cephalogram images and their sidecar configuration.
package ceph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/open-ortho/ceph2dicom/internal/cephconf"
	"github.com/open-ortho/ceph2dicom/internal/dcm"
	"github.com/open-ortho/ceph2dicom/internal/imageinfo"
	"github.com/open-ortho/ceph2dicom/internal/uid"
)

// DCMExtension is the file extension of written records.
const DCMExtension = ".dcm"

// Cephalogram is one radiograph on its way to becoming a record. It
// owns the attribute set exclusively; module accessors are borrowed
// views into it. Not safe for concurrent use.
type Cephalogram struct {
	imagePath string
	props     *cephconf.Properties
	ds        *dcm.Dataset
	info      imageinfo.Info
	gen       uid.Generator
	log       zerolog.Logger
	prepared  bool
}

// Option configures a Cephalogram at construction.
type Option func(*Cephalogram)

// WithLogger routes diagnostics to l instead of discarding them.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cephalogram) { c.log = l }
}

// WithUIDGenerator substitutes the identifier source, e.g. a
// deterministic one for reproducible fixtures.
func WithUIDGenerator(g uid.Generator) Option {
	return func(c *Cephalogram) { c.gen = g }
}

// New creates a record for the image at imagePath. The image must
// exist; a missing image is a fatal precondition, nothing is built.
// props may be nil when the caller only uses the programmatic setters.
func New(imagePath string, props *cephconf.Properties, opts ...Option) (*Cephalogram, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("source image: %w", err)
	}

	c := &Cephalogram{
		imagePath: imagePath,
		props:     props,
		ds:        dcm.NewDataset(),
		gen:       uid.Random{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initRecord()
	return c, nil
}

// initRecord establishes the attributes every digital radiography
// processing-intent record carries regardless of configuration.
func (c *Cephalogram) initRecord() {
	sop := c.ds.SOPCommon()
	sop.SetSOPClassUID(dcm.DigitalXRayForProcessing)
	sop.SetSOPInstanceUID(c.gen.New())

	series := c.ds.DXSeries()
	series.SetModality("DX")
	series.SetSeriesInstanceUID(c.gen.New())
	series.SetPresentationIntentType("FOR PROCESSING")
	series.SetSeriesDateTime(time.Now())

	img := c.ds.DXImage()
	img.SetImageType("ORIGINAL", "PRIMARY")
	img.SetSamplesPerPixel(1)

	pos := c.ds.DXPositioning()
	pos.SetPositionerType("CEPHALOSTAT")
	pos.SetTableType("FIXED")
	pos.SetPatientOrientationCode(codeErect)

	anatomy := c.ds.DXAnatomy()
	anatomy.SetImageLaterality("U")
	anatomy.SetAnatomicRegionCode(codeHeadNOS)
}

// Dataset exposes the underlying attribute set. Callers may use the
// module views for adjustments the configuration map does not cover.
func (c *Cephalogram) Dataset() *dcm.Dataset { return c.ds }

// ImagePath returns the source image path.
func (c *Cephalogram) ImagePath() string { return c.imagePath }

// SOPInstanceUID returns the record's instance identifier.
func (c *Cephalogram) SOPInstanceUID() string {
	v, _ := c.ds.SOPCommon().SOPInstanceUID()
	return v
}

// Prepare maps the configuration onto the record and derives pixel
// geometry from the image header. Field-level configuration problems
// are recovered and logged; an unreadable or unsupported image is an
// error and the record must not be written.
func (c *Cephalogram) Prepare() error {
	if c.prepared {
		return nil
	}
	if c.props != nil {
		c.applyProperties(c.props)
	}

	info, err := imageinfo.ProbeFile(c.imagePath)
	if err != nil {
		return err
	}
	if info.Format != imageinfo.JPEG {
		return fmt.Errorf("%s: %s images cannot be encapsulated under the baseline transfer syntax", c.imagePath, info.Format)
	}
	c.info = info
	c.applyPixelGeometry(info)
	c.prepared = true
	return nil
}

// applyPixelGeometry fills the image pixel description from the probed
// header. Spacing derives from the declared density as 25.4/dpi per
// axis; a header without density leaves spacing unset with a warning.
func (c *Cephalogram) applyPixelGeometry(info imageinfo.Info) {
	img := c.ds.DXImage()
	img.SetRows(info.Height)
	img.SetColumns(info.Width)
	img.SetBitsAllocated(info.BitDepth)
	img.SetBitsStored(info.BitDepth)
	img.SetHighBit(info.BitDepth - 1)
	img.SetPixelRepresentation(0)
	img.SetSamplesPerPixel(1)
	img.SetPhotometricInterpretation("MONOCHROME2")

	if !info.HasDensity() {
		c.log.Warn().Str("image", c.imagePath).
			Msg("image header declares no physical density, pixel spacing left unset")
		return
	}
	rowSpacing := 25.4 / info.DPIY
	colSpacing := 25.4 / info.DPIX
	det := c.ds.DXDetector()
	det.SetImagerPixelSpacing(rowSpacing, colSpacing)
	det.SetPixelSpacing(rowSpacing, colSpacing)
}

// SetSecondaryImageType marks the record as a secondary capture of the
// original image, e.g. a digitized film.
func (c *Cephalogram) SetSecondaryImageType() {
	c.ds.DXImage().SetImageType("ORIGINAL", "SECONDARY")
}

// SetPrimaryImageType restores the default primary image type.
func (c *Cephalogram) SetPrimaryImageType() {
	c.ds.DXImage().SetImageType("ORIGINAL", "PRIMARY")
}

// SetBurnedInAnnotation declares whether the pixel data carries burned
// in identifying annotations, "YES" or "NO".
func (c *Cephalogram) SetBurnedInAnnotation(v string) {
	c.ds.DXImage().SetBurnedInAnnotation(v)
}

// SetReferencedImage links the other projection of a biplane pair.
func (c *Cephalogram) SetReferencedImage(sopInstanceUID string) {
	c.ds.DXImage().SetReferencedImages(dcm.SOPReference{
		ClassUID:    dcm.DigitalXRayForProcessing,
		InstanceUID: sopInstanceUID,
		Purpose:     purposeBiplanePair,
	})
}

// SetReferencedFiducialSet links a spatial fiducials record holding
// landmark points measured on this image.
func (c *Cephalogram) SetReferencedFiducialSet(sopInstanceUID string) {
	c.ds.DXImage().SetReferencedInstances(dcm.SOPReference{
		ClassUID:    dcm.SpatialFiducialsStorage,
		InstanceUID: sopInstanceUID,
		Purpose:     purposeFiducialMark,
	})
}

// WriteOptions steer WriteDCM.
type WriteOptions struct {
	// OutputDir redirects the output away from the source image's
	// directory. Empty keeps the record beside its image.
	OutputDir string
	// OutputName overrides the derived file name.
	OutputName string
	// Strict turns advisory validation findings into a write failure.
	Strict bool
}

// DCMFileName derives the output path: the image base name with the
// record extension, beside the image unless opts redirect it.
func (c *Cephalogram) DCMFileName(opts WriteOptions) string {
	name := opts.OutputName
	if name == "" {
		base := filepath.Base(c.imagePath)
		name = strings.TrimSuffix(base, filepath.Ext(base)) + DCMExtension
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(c.imagePath)
	}
	return filepath.Join(dir, name)
}

// WriteDCM serializes the record: file meta header, attribute set in
// explicit VR little endian, and the compressed image streamed into an
// encapsulated pixel data element. Validation findings are returned
// alongside the path; they fail the write only under Strict. A failure
// mid-stream leaves the partial output in place.
func (c *Cephalogram) WriteDCM(opts WriteOptions) (string, *dcm.ValidationResult, error) {
	if !c.prepared {
		return "", nil, fmt.Errorf("record for %s has not been prepared", c.imagePath)
	}

	c.ensureIdentifiers()
	result := c.Validate()
	if !result.Valid() {
		for _, f := range result.Findings() {
			c.log.Warn().Str("image", c.imagePath).Msg(f.String())
		}
		if opts.Strict {
			return "", result, fmt.Errorf("record for %s failed validation: %s", c.imagePath, result)
		}
	}

	src, err := os.Open(c.imagePath)
	if err != nil {
		return "", result, fmt.Errorf("open source image: %w", err)
	}
	defer src.Close()
	stat, err := src.Stat()
	if err != nil {
		return "", result, fmt.Errorf("stat source image: %w", err)
	}

	path := c.DCMFileName(opts)
	out, err := os.Create(path)
	if err != nil {
		return "", result, fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	sopClass, _ := c.ds.SOPCommon().SOPClassUID()
	sopInstance, _ := c.ds.SOPCommon().SOPInstanceUID()
	if err := dcm.WriteFileHeader(out, dcm.FileMeta{
		SOPClassUID:    sopClass,
		SOPInstanceUID: sopInstance,
		TransferSyntax: dcm.JPEGBaseline,
	}); err != nil {
		return "", result, fmt.Errorf("write file meta: %w", err)
	}

	w := dcm.NewWriter(out)
	if err := w.WriteDataset(c.ds); err != nil {
		return "", result, fmt.Errorf("write dataset: %w", err)
	}
	if err := w.WriteEncapsulatedPixelData(src, stat.Size()); err != nil {
		return "", result, fmt.Errorf("write pixel data: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", result, fmt.Errorf("close %s: %w", path, err)
	}

	c.log.Info().Str("image", c.imagePath).Str("output", path).
		Int64("pixelBytes", stat.Size()).Msg("record written")
	return path, result, nil
}

// ensureIdentifiers generates any missing unique identifiers and fixes
// the character set before serialization.
func (c *Cephalogram) ensureIdentifiers() {
	study := c.ds.GeneralStudy()
	if _, ok := study.StudyInstanceUID(); !ok {
		study.SetStudyInstanceUID(c.gen.New())
	}
	series := c.ds.DXSeries()
	if _, ok := series.SeriesInstanceUID(); !ok {
		series.SetSeriesInstanceUID(c.gen.New())
	}
	sop := c.ds.SOPCommon()
	if _, ok := sop.SOPInstanceUID(); !ok {
		sop.SetSOPInstanceUID(c.gen.New())
	}
	sop.SetSpecificCharacterSet("ISO_IR 100")
}
