package ceph

import (
	"strconv"
	"time"

	"github.com/open-ortho/ceph2dicom/internal/cephconf"
)

const (
	birthDateLayout = "2006-01-02"
	studyLayout     = "2006-01-02 15:04"
)

// applyProperties maps the sidecar configuration onto the record. Every
// field is attempted independently: a malformed value logs a warning
// and falls back to its documented default, and mapping continues.
func (c *Cephalogram) applyProperties(p *cephconf.Properties) {
	patient := c.ds.Patient()
	if v := p.Get("patientName"); v != "" {
		patient.SetName(v)
	}
	if v := p.Get("patientID"); v != "" {
		patient.SetID(v)
	}
	if v := p.Get("patientSex"); v != "" {
		patient.SetSex(v)
	}
	if v := p.Get("patientAge"); v != "" {
		patient.SetAge(v)
	}
	if v := p.Get("ethnicGroup"); v != "" {
		patient.SetEthnicGroup(v)
	}
	if v := p.Get("patientDOB"); v != "" {
		dob, err := time.Parse(birthDateLayout, v)
		if err != nil {
			c.log.Warn().Str("patientDOB", v).Err(err).
				Msg("birth date not in yyyy-MM-dd form, leaving unset")
		} else {
			patient.SetBirthDate(dob)
		}
	}

	study := c.ds.GeneralStudy()
	if v := p.Get("studyID"); v != "" {
		study.SetStudyID(v)
	}
	if v := p.Get("accessionNumber"); v != "" {
		study.SetAccessionNumber(v)
	}
	if v := p.Get("referringPhysician"); v != "" {
		study.SetReferringPhysician(v)
	}
	if v := p.Get("studyDescription"); v != "" {
		study.SetStudyDescription(v)
	}
	c.applyStudyTimestamp(p)

	series := c.ds.DXSeries()
	if v := p.Get("seriesNumber"); v != "" {
		series.SetSeriesNumber(v)
	}
	if v := p.Get("seriesDescription"); v != "" {
		series.SetSeriesDescription(v)
	}
	if v := p.Get("instanceNumber"); v != "" {
		c.ds.DXImage().SetInstanceNumber(v)
	}

	switch p.Get("cephalogramType") {
	case "PA":
		c.SetPosteroAnterior()
	case "L":
		c.SetLeftLateral()
	}

	row, column := p.Get("patientOrientationRow"), p.Get("patientOrientationColumn")
	if row != "" && column != "" {
		c.SetPatientOrientation(row, column)
	}

	c.applyGeometry(p)
}

// applyStudyTimestamp resolves the study date and time from the two
// sidecar fields joined with a space. An unparsable timestamp falls
// back to the current wall clock. The series timestamp always copies
// the resolved study timestamp.
func (c *Cephalogram) applyStudyTimestamp(p *cephconf.Properties) {
	raw := p.Get("studyDate") + " " + p.Get("studyTime")
	ts, err := time.Parse(studyLayout, raw)
	if err != nil {
		c.log.Warn().Str("studyTimestamp", raw).Err(err).
			Msg("study timestamp not in yyyy-MM-dd HH:mm form, using current time")
		ts = time.Now()
	}
	c.ds.GeneralStudy().SetStudyDateTime(ts)
	c.ds.DXSeries().SetSeriesDateTime(ts)
}

// applyGeometry parses the acquisition distances and the optional
// explicit magnification. Distances are all or nothing: if either
// fails to parse, neither is recorded. Explicit magnification is a
// percentage and, when present, overrides the SID/SOD-derived factor.
func (c *Cephalogram) applyGeometry(p *cephconf.Properties) {
	sidRaw, sodRaw := p.Get("sid"), p.Get("sod")
	if sidRaw != "" || sodRaw != "" {
		sid, errSID := strconv.ParseFloat(sidRaw, 64)
		sod, errSOD := strconv.ParseFloat(sodRaw, 64)
		if errSID != nil || errSOD != nil {
			c.log.Warn().Str("sid", sidRaw).Str("sod", sodRaw).
				Msg("distances not parsable as decimal millimeters, leaving both unset")
		} else {
			c.SetDistances(sid, sod)
		}
	}

	if magRaw := p.Get("mag"); magRaw != "" {
		mag, err := strconv.ParseFloat(magRaw, 64)
		if err != nil {
			c.log.Warn().Str("mag", magRaw).Err(err).
				Msg("magnification percentage not parsable, keeping derived factor")
		} else {
			c.SetMagnification(mag / 100)
		}
	}
}
