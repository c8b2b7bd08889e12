package ceph

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/open-ortho/ceph2dicom/internal/cephconf"
	"github.com/open-ortho/ceph2dicom/internal/uid"
)

// CephalogramSet is a paired acquisition: a lateral and a
// postero-anterior cephalogram taken in one sitting, optionally with a
// fiducial point file measured on the lateral image. The records share
// one study and reference each other as a biplane pair.
type CephalogramSet struct {
	Lateral  *Cephalogram
	Frontal  *Cephalogram
	Fiducial *FiducialSet

	gen uid.Generator
	log zerolog.Logger
}

// NewSet builds a pair from two image paths. Each image loads its own
// sidecar by the usual naming convention; pointPath may be empty when
// no fiducials were measured.
func NewSet(lateralPath, frontalPath, pointPath string, opts ...Option) (*CephalogramSet, error) {
	carrier := &Cephalogram{gen: uid.Random{}, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(carrier)
	}
	s := &CephalogramSet{gen: carrier.gen, log: carrier.log}

	lateral, err := newFromSidecar(lateralPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("lateral image: %w", err)
	}
	frontal, err := newFromSidecar(frontalPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("frontal image: %w", err)
	}
	s.Lateral = lateral
	s.Frontal = frontal

	if pointPath != "" {
		props, err := cephconf.Load(pointPath)
		if err != nil {
			return nil, fmt.Errorf("fiducial points: %w", err)
		}
		points := LoadFiducialPoints(props, s.log)
		if len(points) == 0 {
			return nil, fmt.Errorf("fiducial points: %s defines no usable points", pointPath)
		}
		s.Fiducial = NewFiducialSet(points, opts...)
	}
	return s, nil
}

// newFromSidecar loads the image's conventional sidecar and builds the
// record from it.
func newFromSidecar(imagePath string, opts ...Option) (*Cephalogram, error) {
	props, err := cephconf.Load(cephconf.SidecarFor(imagePath))
	if err != nil {
		return nil, err
	}
	return New(imagePath, props, opts...)
}

// Prepare maps both records and links them: a shared study identifier,
// default projections when the sidecars declared none, mutual biplane
// references, and the fiducial set tied to the lateral image.
func (s *CephalogramSet) Prepare() error {
	if err := s.Lateral.Prepare(); err != nil {
		return fmt.Errorf("lateral image: %w", err)
	}
	if err := s.Frontal.Prepare(); err != nil {
		return fmt.Errorf("frontal image: %w", err)
	}

	if _, ok := s.Lateral.ds.DXPositioning().ViewCode(); !ok {
		s.Lateral.SetLeftLateral()
	}
	if _, ok := s.Frontal.ds.DXPositioning().ViewCode(); !ok {
		s.Frontal.SetPosteroAnterior()
	}

	studyUID := s.gen.New()
	s.Lateral.ds.GeneralStudy().SetStudyInstanceUID(studyUID)
	s.Frontal.ds.GeneralStudy().SetStudyInstanceUID(studyUID)

	s.Lateral.SetReferencedImage(s.Frontal.SOPInstanceUID())
	s.Frontal.SetReferencedImage(s.Lateral.SOPInstanceUID())

	if s.Fiducial != nil {
		s.Fiducial.SetReferencedImage(s.Lateral)
		s.Lateral.SetReferencedFiducialSet(s.Fiducial.SOPInstanceUID())
	}
	return nil
}

// Write serializes every record of the set into outputDir and indexes
// them in a DICOMDIR. Returns the written file paths, DICOMDIR last.
func (s *CephalogramSet) Write(outputDir string, opts WriteOptions) ([]string, error) {
	opts.OutputDir = outputDir
	opts.OutputName = ""

	var files []string
	for _, c := range []*Cephalogram{s.Lateral, s.Frontal} {
		path, _, err := c.WriteDCM(opts)
		if err != nil {
			return files, err
		}
		files = append(files, path)
	}

	if s.Fiducial != nil {
		base := filepath.Base(s.Lateral.DCMFileName(WriteOptions{}))
		name := base[:len(base)-len(DCMExtension)] + "-fiducials" + DCMExtension
		path := filepath.Join(outputDir, name)
		if err := s.Fiducial.Write(path); err != nil {
			return files, err
		}
		files = append(files, path)
	}

	dirPath, err := WriteDICOMDIR(outputDir, files, WithUIDGenerator(s.gen), WithLogger(s.log))
	if err != nil {
		return files, err
	}
	return append(files, dirPath), nil
}
