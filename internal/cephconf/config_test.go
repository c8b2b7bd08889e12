package cephconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSidecar(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ceph.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeSidecar(t, "patientName=Smith^John\npatientID=PX1\nsid=1524.0\n")

	props, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Smith^John", props.Get("patientName"))
	assert.Equal(t, "PX1", props.Get("patientID"))
	assert.Equal(t, "1524.0", props.Get("sid"))
	assert.Equal(t, "", props.Get("mag"))
}

func TestLoad_KeysAreCaseInsensitive(t *testing.T) {
	path := writeSidecar(t, "PatientName=X\n")
	props, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "X", props.Get("patientname"))
	assert.Equal(t, "X", props.Get("PATIENTNAME"))
}

func TestLoad_MissingFilePointsAtDocs(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.properties"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), DocURL)
}

func TestSidecarFor(t *testing.T) {
	assert.Equal(t, "/data/smith.properties", SidecarFor("/data/smith.jpg"))
	assert.Equal(t, "ceph.properties", SidecarFor("ceph.jpeg"))
	assert.Equal(t, "noext.properties", SidecarFor("noext"))
}

func TestFromMap(t *testing.T) {
	props := FromMap(map[string]string{"PatientID": "A", "sod": "1370"})
	assert.Equal(t, "A", props.Get("patientid"))
	assert.True(t, props.Has("SOD"))
	assert.False(t, props.Has("sid"))
	assert.Equal(t, 2, props.Len())
}

func TestSample_LoadsCleanly(t *testing.T) {
	path := writeSidecar(t, Sample)
	props, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Smith^John", props.Get("patientName"))
	assert.Equal(t, "L", props.Get("cephalogramType"))
}
