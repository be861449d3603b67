package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"www.velocidex.com/golang/macroscan/config"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/json"
	"www.velocidex.com/golang/macroscan/vtesting"
)

type ScanCommandTestSuite struct {
	suite.Suite

	dir        string
	config_obj *config_types.Config
}

func (self *ScanCommandTestSuite) SetupTest() {
	self.dir = self.T().TempDir()

	self.config_obj = config.GetDefaultConfig()
	self.config_obj.Triage.Argv = []string{filepath.Join(self.dir, "olevba")}
	self.config_obj.StreamDump.Argv = []string{filepath.Join(self.dir, "oledump.py")}
}

func (self *ScanCommandTestSuite) TestMacrosPresent() {
	path := vtesting.WriteFile(self.T(), self.dir, "book.xls",
		vtesting.ExcelWithMacros())

	out := &bytes.Buffer{}
	report := &bytes.Buffer{}
	verdict, err := doScan(context.Background(), self.config_obj, path,
		out, report)
	require.NoError(self.T(), err)

	assert.True(self.T(), verdict.MacrosPresent)
	assert.Equal(self.T(), constants.MACROS_PRESENT+"\n", out.String())
	assert.Contains(self.T(), report.String(), constants.STRATEGY_OLE_STRUCTURE)
	assert.Contains(self.T(), report.String(), "macroscan_scans_total")
}

func (self *ScanCommandTestSuite) TestJsonReport() {
	path := vtesting.WriteFile(self.T(), self.dir, "book.xls",
		vtesting.ExcelWithMacros())

	verdict, err := doScan(context.Background(), self.config_obj, path,
		&bytes.Buffer{}, nil)
	require.NoError(self.T(), err)

	report_path := filepath.Join(self.dir, "report.json")
	require.NoError(self.T(), writeJsonReport(verdict, report_path))

	report := make(map[string]interface{})
	require.NoError(self.T(), json.Unmarshal(
		vtesting.ReadFile(self.T(), report_path), &report))
	assert.Equal(self.T(), constants.MACROS_PRESENT, report["Verdict"])
	assert.Equal(self.T(), verdict.ScanId, report["ScanId"])

	outcomes, ok := report["Outcomes"].([]interface{})
	require.True(self.T(), ok)
	assert.Equal(self.T(), len(verdict.Outcomes), len(outcomes))
}

func (self *ScanCommandTestSuite) TestNoMacros() {
	path := vtesting.WriteFile(self.T(), self.dir, "notes.txt",
		[]byte("nothing to see"))

	out := &bytes.Buffer{}
	_, err := doScan(context.Background(), self.config_obj, path, out, nil)
	require.NoError(self.T(), err)

	// Only the verdict is written to the output.
	assert.Equal(self.T(), constants.NO_MACROS+"\n", out.String())
}

func (self *ScanCommandTestSuite) TestMissingFile() {
	out := &bytes.Buffer{}
	_, err := doScan(context.Background(), self.config_obj,
		filepath.Join(self.dir, "missing.doc"), out, nil)
	require.Error(self.T(), err)
	assert.Equal(self.T(), "", out.String())
}

func (self *ScanCommandTestSuite) TestCancelled() {
	path := vtesting.WriteFile(self.T(), self.dir, "book.xls",
		vtesting.ExcelWithMacros())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	_, err := doScan(ctx, self.config_obj, path, out, nil)
	assert.ErrorIs(self.T(), err, context.Canceled)
	assert.Equal(self.T(), "", out.String())
}

func (self *ScanCommandTestSuite) TestCheck() {
	out := &bytes.Buffer{}
	err := doCheck(self.config_obj, out)
	require.Error(self.T(), err)
	assert.Contains(self.T(), err.Error(), constants.STRATEGY_TRIAGE)
	assert.Contains(self.T(), out.String(), "missing")

	// A disabled strategy does not need its tool.
	self.config_obj.DisabledStrategies = []string{
		constants.STRATEGY_TRIAGE, constants.STRATEGY_STREAM_MARKER}
	out.Reset()
	require.NoError(self.T(), doCheck(self.config_obj, out))
	assert.Contains(self.T(), out.String(), "disabled")

	// Tools which resolve are reported with their path.
	if _, err := os.Stat("/bin/sh"); err == nil {
		self.config_obj.DisabledStrategies = nil
		self.config_obj.Triage.Argv = []string{"/bin/sh"}
		self.config_obj.StreamDump.Argv = []string{"/bin/sh"}

		out.Reset()
		require.NoError(self.T(), doCheck(self.config_obj, out))
		assert.Contains(self.T(), out.String(), "/bin/sh")
	}
}

func (self *ScanCommandTestSuite) TestTimeoutOverride() {
	*timeout_flag = 3
	defer func() { *timeout_flag = 0 }()

	require.NoError(self.T(), applyTimeoutOverride(self.config_obj))
	assert.Equal(self.T(), uint64(3), self.config_obj.Triage.TimeoutSeconds)
	assert.Equal(self.T(), uint64(3), self.config_obj.StreamDump.TimeoutSeconds)
}

func TestScanCommand(t *testing.T) {
	suite.Run(t, &ScanCommandTestSuite{})
}
