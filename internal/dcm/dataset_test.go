package dcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestDataset_PutReplacesValue(t *testing.T) {
	ds := NewDataset()
	ds.PutString(tag.PatientID, "LO", "A")
	ds.PutString(tag.PatientID, "LO", "B")

	v, ok := ds.StringValue(tag.PatientID)
	assert.True(t, ok)
	assert.Equal(t, "B", v)
	assert.Equal(t, 1, ds.Len())
}

func TestDataset_SortedTags(t *testing.T) {
	ds := NewDataset()
	ds.PutInt(tag.Rows, "US", 1)
	ds.PutString(tag.SOPClassUID, "UI", "1.2")
	ds.PutString(tag.PatientID, "LO", "X")
	ds.PutString(tag.Modality, "CS", "DX")

	tags := ds.SortedTags()
	assert.Equal(t, []tag.Tag{tag.SOPClassUID, tag.Modality, tag.PatientID, tag.Rows}, tags)
}

func TestDataset_DeleteAndHas(t *testing.T) {
	ds := NewDataset()
	ds.PutInt(tag.Rows, "US", 1)
	assert.True(t, ds.Has(tag.Rows))
	ds.Delete(tag.Rows)
	assert.False(t, ds.Has(tag.Rows))
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "2", FormatDecimal(2))
	assert.Equal(t, "0.4", FormatDecimal(0.4))
	// A decimal string may not exceed 16 characters.
	assert.LessOrEqual(t, len(FormatDecimal(25.4/300)), 16)
	assert.LessOrEqual(t, len(FormatDecimal(1.0/3.0)), 16)
}

func TestCode_Item(t *testing.T) {
	item := NewCode("R-10214", "postero-anterior", "SNM3").Item()
	v, _ := item.StringValue(tag.CodeValue)
	assert.Equal(t, "R-10214", v)
	assert.False(t, item.Has(tag.CodingSchemeVersion))

	versioned := Code{Value: "112171", Meaning: "Fiducial mark", Scheme: "DCM", SchemeVersion: "01"}.Item()
	ver, ok := versioned.StringValue(tag.CodingSchemeVersion)
	assert.True(t, ok)
	assert.Equal(t, "01", ver)
}

func TestModuleViews_ShareDataset(t *testing.T) {
	ds := NewDataset()
	ds.DXImage().SetRows(600)
	rows, ok := ds.IntValue(tag.Rows)
	assert.True(t, ok)
	assert.Equal(t, 600, rows)

	ds.DXPositioning().SetMagnificationFactor(1.1)
	mag, ok := ds.DXPositioning().MagnificationFactor()
	assert.True(t, ok)
	assert.InDelta(t, 1.1, mag, 1e-9)
}
