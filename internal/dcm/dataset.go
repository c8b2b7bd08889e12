// Package dcm implements the small slice of the DICOM data model needed
// to build and serialize digital cephalogram records: an attribute
// dictionary with typed module views, coded concepts, and an explicit VR
// little endian Part 10 writer with encapsulated pixel data support.
package dcm

import (
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Attribute is a single data element: a tag, its value representation
// and a value. Values are held as []string (text VRs, already formatted),
// []int (binary integer VRs), []float64 (FL/FD), []byte (OB/OW) or
// []*Dataset (SQ items).
type Attribute struct {
	Tag   tag.Tag
	VR    string
	Value any
}

// Dataset is a collection of attributes keyed by tag. It is owned
// exclusively by one record; module views returned by its accessor
// methods are borrowed projections over the same map.
type Dataset struct {
	attrs map[tag.Tag]*Attribute
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{attrs: make(map[tag.Tag]*Attribute)}
}

// Put inserts or replaces an attribute.
func (d *Dataset) Put(t tag.Tag, vr string, value any) {
	d.attrs[t] = &Attribute{Tag: t, VR: vr, Value: value}
}

// PutString sets a text attribute. Values are stored verbatim; backslash
// joining and even padding happen at write time.
func (d *Dataset) PutString(t tag.Tag, vr string, values ...string) {
	d.Put(t, vr, values)
}

// PutInt sets a binary integer attribute (US/UL/SS/SL).
func (d *Dataset) PutInt(t tag.Tag, vr string, values ...int) {
	d.Put(t, vr, values)
}

// PutFloat sets a decimal string attribute from float values.
func (d *Dataset) PutFloat(t tag.Tag, values ...float64) {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = FormatDecimal(v)
	}
	d.Put(t, "DS", strs)
}

// PutSequence sets a sequence attribute from item datasets.
func (d *Dataset) PutSequence(t tag.Tag, items ...*Dataset) {
	d.Put(t, "SQ", items)
}

// Get returns the attribute stored under t.
func (d *Dataset) Get(t tag.Tag) (*Attribute, bool) {
	a, ok := d.attrs[t]
	return a, ok
}

// Has reports whether t is present.
func (d *Dataset) Has(t tag.Tag) bool {
	_, ok := d.attrs[t]
	return ok
}

// Delete removes t if present.
func (d *Dataset) Delete(t tag.Tag) {
	delete(d.attrs, t)
}

// Len returns the number of attributes.
func (d *Dataset) Len() int {
	return len(d.attrs)
}

// StringValues returns the string slice stored under t.
func (d *Dataset) StringValues(t tag.Tag) ([]string, bool) {
	a, ok := d.attrs[t]
	if !ok {
		return nil, false
	}
	s, ok := a.Value.([]string)
	return s, ok
}

// StringValue returns the first string stored under t.
func (d *Dataset) StringValue(t tag.Tag) (string, bool) {
	s, ok := d.StringValues(t)
	if !ok || len(s) == 0 {
		return "", false
	}
	return s[0], true
}

// IntValue returns the first integer stored under t.
func (d *Dataset) IntValue(t tag.Tag) (int, bool) {
	a, ok := d.attrs[t]
	if !ok {
		return 0, false
	}
	v, ok := a.Value.([]int)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// FloatValues parses a decimal string attribute back into floats.
func (d *Dataset) FloatValues(t tag.Tag) ([]float64, bool) {
	strs, ok := d.StringValues(t)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(strs))
	for _, s := range strs {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// Items returns the sequence items stored under t.
func (d *Dataset) Items(t tag.Tag) ([]*Dataset, bool) {
	a, ok := d.attrs[t]
	if !ok {
		return nil, false
	}
	items, ok := a.Value.([]*Dataset)
	return items, ok
}

// SortedTags returns all tags in ascending (group, element) order, the
// order they must be serialized in.
func (d *Dataset) SortedTags() []tag.Tag {
	tags := make([]tag.Tag, 0, len(d.attrs))
	for t := range d.attrs {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Group != tags[j].Group {
			return tags[i].Group < tags[j].Group
		}
		return tags[i].Element < tags[j].Element
	})
	return tags
}

// FormatDecimal renders a float as a DICOM decimal string. DS values are
// capped at 16 bytes, so long expansions fall back to six decimals.
func FormatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if len(s) > 16 {
		s = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return s
}
