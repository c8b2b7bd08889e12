package ceph

import (
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/open-ortho/ceph2dicom/internal/dcm"
)

// maxPixelSpacing is the largest spacing still offering enough spatial
// resolution for cephalometric measurement, 25.4 mm over 128 dots per
// inch.
const maxPixelSpacing = 25.4 / 128

// paletteTags are stripped unconditionally: the profile is monochrome
// and a palette lookup table contradicts it.
var paletteTags = []tag.Tag{
	tag.RedPaletteColorLookupTableDescriptor,
	tag.GreenPaletteColorLookupTableDescriptor,
	tag.BluePaletteColorLookupTableDescriptor,
	tag.RedPaletteColorLookupTableData,
	tag.GreenPaletteColorLookupTableData,
	tag.BluePaletteColorLookupTableData,
}

// Validate runs the advisory profile checks. The record is never
// mutated except for palette removal; findings never block a write
// unless the caller opts into strict mode.
func (c *Cephalogram) Validate() *dcm.ValidationResult {
	result := &dcm.ValidationResult{}

	for _, t := range paletteTags {
		if c.ds.Has(t) {
			c.ds.Delete(t)
			c.log.Warn().Str("tag", t.String()).
				Msg("removed palette lookup table attribute from monochrome record")
		}
	}

	img := c.ds.DXImage()
	if bits, ok := img.BitsAllocated(); ok && bits < 16 {
		result.Add(tag.BitsAllocated, "%d bits allocated, profile requires at least 16", bits)
	}
	if bits, ok := img.BitsStored(); ok && bits < 12 {
		result.Add(tag.BitsStored, "%d bits stored, profile requires at least 12", bits)
	}
	if spacing, ok := c.ds.DXDetector().PixelSpacing(); ok {
		for _, axis := range spacing {
			if axis > maxPixelSpacing {
				result.Add(tag.PixelSpacing, "%s mm exceeds the %s mm resolution ceiling",
					dcm.FormatDecimal(axis), dcm.FormatDecimal(maxPixelSpacing))
				break
			}
		}
	}
	return result
}
