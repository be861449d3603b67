package detectors

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/vtesting"
	"www.velocidex.com/golang/oleparse"
)

// Returns canned output for any command and records what was run.
type fakeRunner struct {
	mu     sync.Mutex
	stdout string
	err    error
	argv   [][]string
}

func (self *fakeRunner) Run(
	ctx context.Context, argv []string) (*CommandResult, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.argv = append(self.argv, argv)
	if self.err != nil {
		return nil, self.err
	}
	return &CommandResult{Stdout: []byte(self.stdout)}, nil
}

// A parse function which reports one module for any buffer containing
// marker and records every buffer it was given.
type fakeParser struct {
	mu      sync.Mutex
	marker  []byte
	err     error
	panics  bool
	buffers [][]byte
}

func (self *fakeParser) Parse(data []byte) ([]*oleparse.VBAModule, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.buffers = append(self.buffers, data)
	if self.panics {
		panic("corrupted project")
	}

	if self.err != nil {
		return nil, self.err
	}

	if self.marker != nil && bytes.Contains(data, self.marker) {
		return []*oleparse.VBAModule{{}}, nil
	}
	return nil, nil
}

func (self *fakeParser) Calls() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return len(self.buffers)
}

// An OLE file whose only stream contains marker.
func oleWithMarker(marker string) []byte {
	return vtesting.BuildCompoundFile(vtesting.OLEEntry{
		Name: "Macros", Data: []byte(marker),
	})
}

func newDocument(t *testing.T, name string, data []byte) *document.Document {
	path := vtesting.WriteFile(t, t.TempDir(), name, data)
	doc, err := document.New(path, 0)
	require.NoError(t, err)
	return doc
}

func missingTool(t *testing.T) string {
	return filepath.Join(t.TempDir(), "no_such_tool")
}

func shellAvailable(t *testing.T) {
	_, err := os.Stat("/bin/sh")
	if err != nil {
		t.Skip("No /bin/sh on this system")
	}
}
