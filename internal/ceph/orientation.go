package ceph

import (
	"github.com/open-ortho/ceph2dicom/internal/dcm"
)

// View codes for the four canonical cephalometric projections, SNOMED
// RT scheme.
var (
	ViewPosteroAnterior = dcm.NewCode("R-10214", "postero-anterior", "SNM3")
	ViewAnteroPosterior = dcm.NewCode("R-10206", "antero-posterior", "SNM3")
	ViewRightLateral    = dcm.NewCode("R-10232", "right lateral", "SNM3")
	ViewLeftLateral     = dcm.NewCode("R-10236", "left lateral", "SNM3")
)

// Codes fixed at record construction.
var (
	codeErect   = dcm.NewCode("F-10440", "ERECT", "SNM3")
	codeHeadNOS = dcm.NewCode("T-D1100", "Head, NOS", "SNM3")
)

// Purpose-of-reference codes for cross references between records.
var (
	purposeBiplanePair  = dcm.NewCode("121314", "Other image of biplane pair", "DCM")
	purposeFiducialMark = dcm.Code{Value: "112171", Meaning: "Fiducial mark", Scheme: "DCM", SchemeVersion: "01"}
)

// directionCosines maps the five standard two-letter patient
// orientation pairs (row direction, column direction) to the six
// direction cosines of the image plane in the patient coordinate
// system.
var directionCosines = map[string][6]float64{
	"AF": {0, -1, 0, 0, 0, -1},
	"PF": {0, 1, 0, 0, 0, -1},
	"LF": {1, 0, 0, 0, 0, -1},
	"RF": {-1, 0, 0, 0, 0, -1},
	"FP": {0, 0, -1, 0, 1, 0},
}

// setOrientation applies one projection atomically: positioner angles
// and view code always, series description only for the projections
// that historically labeled their series.
func (c *Cephalogram) setOrientation(primary, secondary float64, view dcm.Code, seriesDescription string) {
	pos := c.ds.DXPositioning()
	pos.SetPrimaryAngle(primary)
	pos.SetSecondaryAngle(secondary)
	pos.SetViewCode(view)
	if seriesDescription != "" {
		c.ds.DXSeries().SetSeriesDescription(seriesDescription)
	}
}

// SetPosteroAnterior configures the record as a postero-anterior
// cephalogram.
func (c *Cephalogram) SetPosteroAnterior() {
	c.setOrientation(180, 0, ViewPosteroAnterior, "POSTERO-ANTERIOR CEPHALOGRAM")
}

// SetAnteroPosterior configures the record as an antero-posterior
// cephalogram. No series description is set for this projection.
func (c *Cephalogram) SetAnteroPosterior() {
	c.setOrientation(0, 0, ViewAnteroPosterior, "")
}

// SetRightLateral configures the record as a right lateral cephalogram.
// No series description is set for this projection.
func (c *Cephalogram) SetRightLateral() {
	c.setOrientation(-90, 0, ViewRightLateral, "")
}

// SetLeftLateral configures the record as a left lateral cephalogram.
func (c *Cephalogram) SetLeftLateral() {
	c.setOrientation(90, 0, ViewLeftLateral, "LATERAL CEPHALOGRAM")
}

// SetPatientOrientation records the row/column orientation pair
// verbatim and, when the pair is one of the five standard ones, the
// derived direction cosines. An unknown pair keeps the verbatim pair
// and logs an error; the cosines stay unset.
func (c *Cephalogram) SetPatientOrientation(row, column string) {
	c.ds.DXImage().SetPatientOrientation(row, column)
	cosines, ok := directionCosines[row+column]
	if !ok {
		c.log.Error().Str("row", row).Str("column", column).
			Msg("patient orientation pair has no direction cosine mapping")
		return
	}
	c.ds.DXImage().SetImageOrientation(cosines)
}

// SetDistances records the source-to-detector and source-to-patient
// distances in millimeters and derives the magnification factor as
// their ratio. An explicit magnification set afterwards overrides the
// derived value.
func (c *Cephalogram) SetDistances(sid, sod float64) {
	pos := c.ds.DXPositioning()
	pos.SetDistanceSourceToDetector(sid)
	pos.SetDistanceSourceToPatient(sod)
	if sod != 0 {
		pos.SetMagnificationFactor(sid / sod)
	}
}

// SetMagnification overrides any derived magnification factor.
func (c *Cephalogram) SetMagnification(factor float64) {
	c.ds.DXPositioning().SetMagnificationFactor(factor)
}
