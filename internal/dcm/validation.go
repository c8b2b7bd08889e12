package dcm

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Finding records one attribute that failed a profile check.
type Finding struct {
	Tag    tag.Tag
	Reason string
}

func (f Finding) String() string {
	name := fmt.Sprintf("(%04X,%04X)", f.Tag.Group, f.Tag.Element)
	if info, err := tag.Find(f.Tag); err == nil && info.Name != "" {
		name = fmt.Sprintf("%s %s", name, info.Name)
	}
	return name + ": " + f.Reason
}

// ValidationResult accumulates profile findings. Checks are advisory:
// callers decide whether findings block a write.
type ValidationResult struct {
	findings []Finding
}

// Add records a finding against t.
func (r *ValidationResult) Add(t tag.Tag, format string, args ...any) {
	r.findings = append(r.findings, Finding{Tag: t, Reason: fmt.Sprintf(format, args...)})
}

// Valid reports whether no findings were recorded.
func (r *ValidationResult) Valid() bool {
	return len(r.findings) == 0
}

// Findings returns the recorded findings in insertion order.
func (r *ValidationResult) Findings() []Finding {
	return r.findings
}

func (r *ValidationResult) String() string {
	if r.Valid() {
		return "valid"
	}
	parts := make([]string, len(r.findings))
	for i, f := range r.findings {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}
