package dcm

import "github.com/suyashkumar/dicom/pkg/tag"

// Code is an immutable coded concept: a (value, meaning, scheme) triple
// with an optional scheme version. Used for anatomic region, patient
// orientation, view and purpose-of-reference codes.
type Code struct {
	Value         string
	Meaning       string
	Scheme        string
	SchemeVersion string
}

// NewCode builds a coded concept without a scheme version.
func NewCode(value, meaning, scheme string) Code {
	return Code{Value: value, Meaning: meaning, Scheme: scheme}
}

// Item renders the code as a code sequence item.
func (c Code) Item() *Dataset {
	item := NewDataset()
	item.PutString(tag.CodeValue, "SH", c.Value)
	item.PutString(tag.CodingSchemeDesignator, "SH", c.Scheme)
	if c.SchemeVersion != "" {
		item.PutString(tag.CodingSchemeVersion, "SH", c.SchemeVersion)
	}
	item.PutString(tag.CodeMeaning, "LO", c.Meaning)
	return item
}

// PutCodeSequence stores codes as a single-item-per-code sequence.
func (d *Dataset) PutCodeSequence(t tag.Tag, codes ...Code) {
	items := make([]*Dataset, len(codes))
	for i, c := range codes {
		items[i] = c.Item()
	}
	d.PutSequence(t, items...)
}

// CodeFromItem reads a coded concept back out of a code sequence item.
func CodeFromItem(item *Dataset) Code {
	var c Code
	c.Value, _ = item.StringValue(tag.CodeValue)
	c.Meaning, _ = item.StringValue(tag.CodeMeaning)
	c.Scheme, _ = item.StringValue(tag.CodingSchemeDesignator)
	c.SchemeVersion, _ = item.StringValue(tag.CodingSchemeVersion)
	return c
}

// SOPReference points at another SOP instance together with the reason
// for the reference.
type SOPReference struct {
	ClassUID    string
	InstanceUID string
	Purpose     Code
}

// Item renders the reference as a referenced-instance sequence item.
func (r SOPReference) Item() *Dataset {
	item := NewDataset()
	item.PutString(tag.ReferencedSOPClassUID, "UI", r.ClassUID)
	item.PutString(tag.ReferencedSOPInstanceUID, "UI", r.InstanceUID)
	if r.Purpose.Value != "" {
		item.PutCodeSequence(tag.PurposeOfReferenceCodeSequence, r.Purpose)
	}
	return item
}
