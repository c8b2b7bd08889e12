package dcm

import (
	"time"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Module views are thin projections over a record's attribute dictionary.
// They carry no state of their own: every accessor reads or writes the
// shared *Dataset, so borrowing several views of the same record is safe
// as long as the record itself is not used concurrently.

const (
	dateLayout = "20060102"
	timeLayout = "150405"
)

// PatientModule groups patient demographic attributes.
type PatientModule struct{ ds *Dataset }

// Patient returns the patient view of d.
func (d *Dataset) Patient() PatientModule { return PatientModule{ds: d} }

func (m PatientModule) SetName(name string)     { m.ds.PutString(tag.PatientName, "PN", name) }
func (m PatientModule) SetID(id string)         { m.ds.PutString(tag.PatientID, "LO", id) }
func (m PatientModule) SetSex(sex string)       { m.ds.PutString(tag.PatientSex, "CS", sex) }
func (m PatientModule) SetAge(age string)       { m.ds.PutString(tag.PatientAge, "AS", age) }
func (m PatientModule) SetEthnicGroup(g string) { m.ds.PutString(tag.EthnicGroup, "SH", g) }

// SetBirthDate stores the birth date as a DICOM DA value.
func (m PatientModule) SetBirthDate(t time.Time) {
	m.ds.PutString(tag.PatientBirthDate, "DA", t.Format(dateLayout))
}

// ClearBirthDate removes the birth date entirely, the documented fallback
// for an unparsable date.
func (m PatientModule) ClearBirthDate() {
	m.ds.Delete(tag.PatientBirthDate)
}

// BirthDate returns the stored birth date, if any.
func (m PatientModule) BirthDate() (time.Time, bool) {
	s, ok := m.ds.StringValue(tag.PatientBirthDate)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// GeneralStudyModule groups study-level attributes.
type GeneralStudyModule struct{ ds *Dataset }

// GeneralStudy returns the study view of d.
func (d *Dataset) GeneralStudy() GeneralStudyModule { return GeneralStudyModule{ds: d} }

func (m GeneralStudyModule) SetStudyInstanceUID(uid string) {
	m.ds.PutString(tag.StudyInstanceUID, "UI", uid)
}

func (m GeneralStudyModule) StudyInstanceUID() (string, bool) {
	return m.ds.StringValue(tag.StudyInstanceUID)
}

func (m GeneralStudyModule) SetStudyID(id string) { m.ds.PutString(tag.StudyID, "SH", id) }

func (m GeneralStudyModule) SetAccessionNumber(n string) {
	m.ds.PutString(tag.AccessionNumber, "SH", n)
}

func (m GeneralStudyModule) SetReferringPhysician(name string) {
	m.ds.PutString(tag.ReferringPhysicianName, "PN", name)
}

func (m GeneralStudyModule) SetStudyDescription(desc string) {
	m.ds.PutString(tag.StudyDescription, "LO", desc)
}

func (m GeneralStudyModule) StudyDescription() (string, bool) {
	return m.ds.StringValue(tag.StudyDescription)
}

// SetStudyDateTime stores the acquisition timestamp as DA + TM values.
func (m GeneralStudyModule) SetStudyDateTime(t time.Time) {
	m.ds.PutString(tag.StudyDate, "DA", t.Format(dateLayout))
	m.ds.PutString(tag.StudyTime, "TM", t.Format(timeLayout))
}

// StudyDateTime reassembles the stored DA + TM pair.
func (m GeneralStudyModule) StudyDateTime() (time.Time, bool) {
	d, ok := m.ds.StringValue(tag.StudyDate)
	if !ok {
		return time.Time{}, false
	}
	tm, ok := m.ds.StringValue(tag.StudyTime)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout+timeLayout, d+tm)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DXSeriesModule groups DX series attributes.
type DXSeriesModule struct{ ds *Dataset }

// DXSeries returns the series view of d.
func (d *Dataset) DXSeries() DXSeriesModule { return DXSeriesModule{ds: d} }

func (m DXSeriesModule) SetModality(mod string) { m.ds.PutString(tag.Modality, "CS", mod) }

func (m DXSeriesModule) SetSeriesInstanceUID(uid string) {
	m.ds.PutString(tag.SeriesInstanceUID, "UI", uid)
}

func (m DXSeriesModule) SeriesInstanceUID() (string, bool) {
	return m.ds.StringValue(tag.SeriesInstanceUID)
}

func (m DXSeriesModule) SetSeriesNumber(n string) {
	m.ds.PutString(tag.SeriesNumber, "IS", n)
}

func (m DXSeriesModule) SetSeriesDescription(desc string) {
	m.ds.PutString(tag.SeriesDescription, "LO", desc)
}

func (m DXSeriesModule) SeriesDescription() (string, bool) {
	return m.ds.StringValue(tag.SeriesDescription)
}

func (m DXSeriesModule) SetPresentationIntentType(t string) {
	m.ds.PutString(tag.PresentationIntentType, "CS", t)
}

func (m DXSeriesModule) SetSeriesDateTime(t time.Time) {
	m.ds.PutString(tag.SeriesDate, "DA", t.Format(dateLayout))
	m.ds.PutString(tag.SeriesTime, "TM", t.Format(timeLayout))
}

// DXImageModule groups image pixel and annotation attributes.
type DXImageModule struct{ ds *Dataset }

// DXImage returns the image view of d.
func (d *Dataset) DXImage() DXImageModule { return DXImageModule{ds: d} }

func (m DXImageModule) SetInstanceNumber(n string) {
	m.ds.PutString(tag.InstanceNumber, "IS", n)
}

func (m DXImageModule) SetImageType(values ...string) {
	m.ds.PutString(tag.ImageType, "CS", values...)
}

func (m DXImageModule) SetSamplesPerPixel(n int) {
	m.ds.PutInt(tag.SamplesPerPixel, "US", n)
}

func (m DXImageModule) SetPhotometricInterpretation(pi string) {
	m.ds.PutString(tag.PhotometricInterpretation, "CS", pi)
}

func (m DXImageModule) SetRows(n int)    { m.ds.PutInt(tag.Rows, "US", n) }
func (m DXImageModule) SetColumns(n int) { m.ds.PutInt(tag.Columns, "US", n) }

func (m DXImageModule) Rows() (int, bool)    { return m.ds.IntValue(tag.Rows) }
func (m DXImageModule) Columns() (int, bool) { return m.ds.IntValue(tag.Columns) }

func (m DXImageModule) SetBitsAllocated(n int) { m.ds.PutInt(tag.BitsAllocated, "US", n) }
func (m DXImageModule) SetBitsStored(n int)    { m.ds.PutInt(tag.BitsStored, "US", n) }
func (m DXImageModule) SetHighBit(n int)       { m.ds.PutInt(tag.HighBit, "US", n) }

func (m DXImageModule) BitsAllocated() (int, bool) { return m.ds.IntValue(tag.BitsAllocated) }
func (m DXImageModule) BitsStored() (int, bool)    { return m.ds.IntValue(tag.BitsStored) }

func (m DXImageModule) SetPixelRepresentation(n int) {
	m.ds.PutInt(tag.PixelRepresentation, "US", n)
}

// SetPatientOrientation stores the row/column orientation pair verbatim.
func (m DXImageModule) SetPatientOrientation(row, column string) {
	m.ds.PutString(tag.PatientOrientation, "CS", row, column)
}

func (m DXImageModule) PatientOrientation() ([]string, bool) {
	return m.ds.StringValues(tag.PatientOrientation)
}

func (m DXImageModule) SetImageOrientation(cosines [6]float64) {
	m.ds.PutFloat(tag.ImageOrientationPatient, cosines[:]...)
}

func (m DXImageModule) ImageOrientation() ([]float64, bool) {
	return m.ds.FloatValues(tag.ImageOrientationPatient)
}

func (m DXImageModule) SetBurnedInAnnotation(v string) {
	m.ds.PutString(tag.BurnedInAnnotation, "CS", v)
}

// SetReferencedImages records references to sibling images of the same
// acquisition (the other half of a biplane pair).
func (m DXImageModule) SetReferencedImages(refs ...SOPReference) {
	items := make([]*Dataset, len(refs))
	for i, r := range refs {
		items[i] = r.Item()
	}
	m.ds.PutSequence(tag.ReferencedImageSequence, items...)
}

// SetReferencedInstances records references to non-image objects, such
// as a spatial fiducials set.
func (m DXImageModule) SetReferencedInstances(refs ...SOPReference) {
	items := make([]*Dataset, len(refs))
	for i, r := range refs {
		items[i] = r.Item()
	}
	m.ds.PutSequence(tag.ReferencedInstanceSequence, items...)
}

// ReferencedInstances returns any stored non-image references.
func (m DXImageModule) ReferencedInstances() ([]SOPReference, bool) {
	return m.references(tag.ReferencedInstanceSequence)
}

// ReferencedImages returns any stored sibling image references.
func (m DXImageModule) ReferencedImages() ([]SOPReference, bool) {
	return m.references(tag.ReferencedImageSequence)
}

func (m DXImageModule) references(t tag.Tag) ([]SOPReference, bool) {
	items, ok := m.ds.Items(t)
	if !ok {
		return nil, false
	}
	refs := make([]SOPReference, 0, len(items))
	for _, item := range items {
		var r SOPReference
		r.ClassUID, _ = item.StringValue(tag.ReferencedSOPClassUID)
		r.InstanceUID, _ = item.StringValue(tag.ReferencedSOPInstanceUID)
		if codes, ok := item.Items(tag.PurposeOfReferenceCodeSequence); ok && len(codes) > 0 {
			r.Purpose = CodeFromItem(codes[0])
		}
		refs = append(refs, r)
	}
	return refs, true
}

// DXPositioningModule groups acquisition geometry attributes.
type DXPositioningModule struct{ ds *Dataset }

// DXPositioning returns the positioning view of d.
func (d *Dataset) DXPositioning() DXPositioningModule { return DXPositioningModule{ds: d} }

func (m DXPositioningModule) SetPositionerType(t string) {
	m.ds.PutString(tag.PositionerType, "CS", t)
}

func (m DXPositioningModule) SetTableType(t string) {
	m.ds.PutString(tag.TableType, "CS", t)
}

func (m DXPositioningModule) SetPatientOrientationCode(c Code) {
	m.ds.PutCodeSequence(tag.PatientOrientationCodeSequence, c)
}

func (m DXPositioningModule) SetViewCode(c Code) {
	m.ds.PutCodeSequence(tag.ViewCodeSequence, c)
}

// ViewCode returns the stored view code, if any.
func (m DXPositioningModule) ViewCode() (Code, bool) {
	items, ok := m.ds.Items(tag.ViewCodeSequence)
	if !ok || len(items) == 0 {
		return Code{}, false
	}
	return CodeFromItem(items[0]), true
}

func (m DXPositioningModule) SetPrimaryAngle(deg float64) {
	m.ds.PutFloat(tag.PositionerPrimaryAngle, deg)
}

func (m DXPositioningModule) SetSecondaryAngle(deg float64) {
	m.ds.PutFloat(tag.PositionerSecondaryAngle, deg)
}

func (m DXPositioningModule) PrimaryAngle() (float64, bool) {
	v, ok := m.ds.FloatValues(tag.PositionerPrimaryAngle)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (m DXPositioningModule) SecondaryAngle() (float64, bool) {
	v, ok := m.ds.FloatValues(tag.PositionerSecondaryAngle)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (m DXPositioningModule) SetDistanceSourceToDetector(mm float64) {
	m.ds.PutFloat(tag.DistanceSourceToDetector, mm)
}

func (m DXPositioningModule) SetDistanceSourceToPatient(mm float64) {
	m.ds.PutFloat(tag.DistanceSourceToPatient, mm)
}

func (m DXPositioningModule) DistanceSourceToDetector() (float64, bool) {
	v, ok := m.ds.FloatValues(tag.DistanceSourceToDetector)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (m DXPositioningModule) DistanceSourceToPatient() (float64, bool) {
	v, ok := m.ds.FloatValues(tag.DistanceSourceToPatient)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func (m DXPositioningModule) SetMagnificationFactor(f float64) {
	m.ds.PutFloat(tag.EstimatedRadiographicMagnificationFactor, f)
}

func (m DXPositioningModule) MagnificationFactor() (float64, bool) {
	v, ok := m.ds.FloatValues(tag.EstimatedRadiographicMagnificationFactor)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// DXDetectorModule groups detector resolution attributes.
type DXDetectorModule struct{ ds *Dataset }

// DXDetector returns the detector view of d.
func (d *Dataset) DXDetector() DXDetectorModule { return DXDetectorModule{ds: d} }

func (m DXDetectorModule) SetImagerPixelSpacing(row, column float64) {
	m.ds.PutFloat(tag.ImagerPixelSpacing, row, column)
}

func (m DXDetectorModule) SetPixelSpacing(row, column float64) {
	m.ds.PutFloat(tag.PixelSpacing, row, column)
}

func (m DXDetectorModule) PixelSpacing() ([]float64, bool) {
	return m.ds.FloatValues(tag.PixelSpacing)
}

// DXAnatomyModule groups anatomy attributes.
type DXAnatomyModule struct{ ds *Dataset }

// DXAnatomy returns the anatomy view of d.
func (d *Dataset) DXAnatomy() DXAnatomyModule { return DXAnatomyModule{ds: d} }

func (m DXAnatomyModule) SetImageLaterality(l string) {
	m.ds.PutString(tag.ImageLaterality, "CS", l)
}

func (m DXAnatomyModule) SetAnatomicRegionCode(c Code) {
	m.ds.PutCodeSequence(tag.AnatomicRegionSequence, c)
}

// SOPCommonModule groups SOP identification attributes.
type SOPCommonModule struct{ ds *Dataset }

// SOPCommon returns the SOP common view of d.
func (d *Dataset) SOPCommon() SOPCommonModule { return SOPCommonModule{ds: d} }

func (m SOPCommonModule) SetSOPClassUID(uid string) {
	m.ds.PutString(tag.SOPClassUID, "UI", uid)
}

func (m SOPCommonModule) SOPClassUID() (string, bool) {
	return m.ds.StringValue(tag.SOPClassUID)
}

func (m SOPCommonModule) SetSOPInstanceUID(uid string) {
	m.ds.PutString(tag.SOPInstanceUID, "UI", uid)
}

func (m SOPCommonModule) SOPInstanceUID() (string, bool) {
	return m.ds.StringValue(tag.SOPInstanceUID)
}

func (m SOPCommonModule) SetSpecificCharacterSet(cs string) {
	m.ds.PutString(tag.SpecificCharacterSet, "CS", cs)
}
