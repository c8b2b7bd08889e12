package e2e

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// binaryPath holds the path to the compiled binary (set once in TestMain)
var binaryPath string

// testContext holds state for a single scenario
type testContext struct {
	tmpDir   string
	exitCode int
	output   string
}

// buildBinary compiles the ceph2dicom binary once
func buildBinary() (string, error) {
	tmpFile, err := os.CreateTemp("", "ceph2dicom-test-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpFile.Close()

	_, thisFile, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")

	cmd := exec.Command("go", "build", "-o", tmpFile.Name(), "./cmd/ceph2dicom")
	cmd.Dir = projectRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build failed: %w\n%s", err, stderr.String())
	}

	return tmpFile.Name(), nil
}

func TestMain(m *testing.M) {
	var err error
	binaryPath, err = buildBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build binary: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(binaryPath)

	code := m.Run()
	os.Exit(code)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "ceph2dicom-e2e-*")
		if err != nil {
			return ctx, err
		}
		tc.tmpDir = tmpDir
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.tmpDir != "" {
			os.RemoveAll(tc.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^a cephalogram image "([^"]*)" with sidecar$`, tc.aCephalogramWithSidecar)
	sc.Step(`^a cephalogram image "([^"]*)" without sidecar$`, tc.aCephalogramWithoutSidecar)
	sc.Step(`^a fiducial point file "([^"]*)"$`, tc.aFiducialPointFile)
	sc.Step(`^I run ceph2dicom with "([^"]*)"$`, tc.iRunCeph2dicomWith)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^"([^"]*)" should exist$`, tc.shouldExist)
	sc.Step(`^"([^"]*)" should be a parsable DICOM file with modality "([^"]*)"$`, tc.shouldBeParsableDICOM)
}

// fixtureJPEG is a minimal 16-bit 300 dpi marker stream the converter
// accepts.
func fixtureJPEG() []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	b.Write([]byte{0xFF, 0xE0, 0x00, 0x10})
	b.WriteString("JFIF\x00")
	b.Write([]byte{0x01, 0x01, 0x01})
	binary.Write(&b, binary.BigEndian, uint16(300))
	binary.Write(&b, binary.BigEndian, uint16(300))
	b.Write([]byte{0x00, 0x00})
	b.Write([]byte{0xFF, 0xC1, 0x00, 0x0B, 16})
	binary.Write(&b, binary.BigEndian, uint16(900))
	binary.Write(&b, binary.BigEndian, uint16(1000))
	b.Write([]byte{0x01, 0x01, 0x11, 0x00})
	b.Write([]byte{0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00})
	b.Write([]byte{0x12, 0x34, 0x56})
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

const sidecarFixture = `patientName=Smith^John
patientID=PX002348
patientDOB=1990-04-17
studyDate=2025-11-02
studyTime=14:30
cephalogramType=L
sid=1524.0
sod=1370.0
`

func (tc *testContext) aCephalogramWithSidecar(name string) error {
	if err := tc.aCephalogramWithoutSidecar(name); err != nil {
		return err
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	sidecar := filepath.Join(tc.tmpDir, base+".properties")
	return os.WriteFile(sidecar, []byte(sidecarFixture), 0o644)
}

func (tc *testContext) aCephalogramWithoutSidecar(name string) error {
	return os.WriteFile(filepath.Join(tc.tmpDir, name), fixtureJPEG(), 0o644)
}

func (tc *testContext) aFiducialPointFile(name string) error {
	data := "point.1.name=Sella\npoint.1.x=512\npoint.1.y=498\n"
	return os.WriteFile(filepath.Join(tc.tmpDir, name), []byte(data), 0o644)
}

func (tc *testContext) iRunCeph2dicomWith(args string) error {
	args = strings.ReplaceAll(args, "{tmpdir}", tc.tmpDir)
	argList := splitArgs(args)

	cmd := exec.Command(binaryPath, argList...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	tc.output = output.String()

	if exitErr, ok := err.(*exec.ExitError); ok {
		tc.exitCode = exitErr.ExitCode()
	} else if err != nil {
		return fmt.Errorf("failed to run command: %w", err)
	} else {
		tc.exitCode = 0
	}

	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

func (tc *testContext) shouldExist(path string) error {
	path = strings.ReplaceAll(path, "{tmpdir}", tc.tmpDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	return nil
}

func (tc *testContext) shouldBeParsableDICOM(path, modality string) error {
	path = strings.ReplaceAll(path, "{tmpdir}", tc.tmpDir)

	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	elem, err := ds.FindElementByTag(tag.Modality)
	if err != nil {
		return fmt.Errorf("no modality in %s: %w", path, err)
	}
	got := strings.Trim(elem.Value.String(), " []")
	if got != modality {
		return fmt.Errorf("expected modality %q, got %q", modality, got)
	}
	return nil
}

// splitArgs splits a command line string into arguments
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
