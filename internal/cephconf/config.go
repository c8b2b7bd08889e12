// Package cephconf loads the key/value sidecar file that accompanies a
// cephalogram image.
package cephconf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DocURL points at the configuration reference shown when a sidecar is
// missing or unreadable.
const DocURL = "https://github.com/open-ortho/ceph2dicom#configuration"

// Extension is the sidecar file extension.
const Extension = ".properties"

// Properties is the parsed sidecar. Keys are case-insensitive; lookups
// go through Get.
type Properties struct {
	values map[string]string
}

// SidecarFor returns the sidecar path conventionally paired with an
// image: the image path with its extension swapped for .properties.
func SidecarFor(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + Extension
}

// Load reads a Java-style .properties file. A missing or malformed file
// is an error the caller should treat as fatal; the message carries a
// pointer to the documentation and the sample configuration.
func Load(path string) (*Properties, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read configuration %s: %w (see %s for the format and a sample file)", path, err, DocURL)
	}

	values := make(map[string]string)
	for _, key := range v.AllKeys() {
		values[strings.ToLower(key)] = v.GetString(key)
	}
	return &Properties{values: values}, nil
}

// FromMap wraps an in-memory key/value set, mostly for tests.
func FromMap(m map[string]string) *Properties {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[strings.ToLower(k)] = v
	}
	return &Properties{values: values}
}

// Get returns the value for key, case-insensitively. Missing keys
// return the empty string.
func (p *Properties) Get(key string) string {
	return p.values[strings.ToLower(key)]
}

// Has reports whether key is present, even with an empty value.
func (p *Properties) Has(key string) bool {
	_, ok := p.values[strings.ToLower(key)]
	return ok
}

// Keys returns all present keys, lowercased, in no particular order.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (p *Properties) Len() int {
	return len(p.values)
}

// Sample is a complete example sidecar, emitted by the sample-config
// command and referenced from fatal configuration diagnostics.
const Sample = `# Cephalogram sidecar configuration.
# Place next to the image with the same base name and a .properties
# extension, e.g. smith.jpg -> smith.properties.

patientName=Smith^John
patientID=PX002348
patientSex=M
patientDOB=1990-04-17
patientAge=035Y
ethnicGroup=

studyID=1
studyDate=2025-11-02
studyTime=14:30
studyDescription=
accessionNumber=
referringPhysician=Jones^Mary

seriesNumber=1
instanceNumber=1

# PA or L selects a canonical projection. Leave empty and set the
# orientation pair below for anything else.
cephalogramType=L
patientOrientationRow=
patientOrientationColumn=

# Acquisition geometry, millimeters.
sid=1524.0
sod=1370.0
# Explicit magnification percentage. Overrides the value derived from
# sid/sod when present.
mag=

# Optional fiducial points, pixel coordinates.
#point.1.name=Sella
#point.1.x=512
#point.1.y=498
`
