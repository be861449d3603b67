package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"www.velocidex.com/golang/macroscan/config"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/detectors"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/utils"
	"www.velocidex.com/golang/macroscan/vtesting"
	"www.velocidex.com/golang/macroscan/vtesting/goldie"
	"www.velocidex.com/golang/oleparse"
)

// A strategy with a fixed outcome which counts how often it ran.
type fakeStrategy struct {
	mu     sync.Mutex
	name   string
	result detectors.Result
	err    error
	panics bool
	calls  int
}

func (self *fakeStrategy) Name() string {
	return self.name
}

func (self *fakeStrategy) Detect(
	ctx context.Context, doc *document.Document) (detectors.Result, error) {
	self.mu.Lock()
	self.calls++
	self.mu.Unlock()

	if self.panics {
		panic("strategy exploded")
	}
	return self.result, self.err
}

func (self *fakeStrategy) Calls() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.calls
}

func newFake(name string, verdict detectors.Verdict) *fakeStrategy {
	return &fakeStrategy{
		name:   name,
		result: detectors.Result{Verdict: verdict, Reason: name + " said so"},
	}
}

type fakeRunner struct {
	stdout string
}

func (self *fakeRunner) Run(ctx context.Context,
	argv []string) (*detectors.CommandResult, error) {
	return &detectors.CommandResult{Stdout: []byte(self.stdout)}, nil
}

// Reports VBA modules for any buffer carrying the marker.
func markerParser(marker string) detectors.ParseFunc {
	return func(data []byte) ([]*oleparse.VBAModule, error) {
		if strings.Contains(string(data), marker) {
			return []*oleparse.VBAModule{{}}, nil
		}
		return nil, nil
	}
}

type ScannerTestSuite struct {
	suite.Suite

	config_obj *config_types.Config
	dir        string
}

func (self *ScannerTestSuite) SetupTest() {
	self.dir = self.T().TempDir()

	// Point the external tools somewhere they can not be found.
	self.config_obj = config.GetDefaultConfig()
	self.config_obj.Triage.Argv = []string{
		filepath.Join(self.dir, "olevba"), "-t"}
	self.config_obj.StreamDump.Argv = []string{
		filepath.Join(self.dir, "oledump.py")}
}

func (self *ScannerTestSuite) newDocument(name string, data []byte) *document.Document {
	path := vtesting.WriteFile(self.T(), self.dir, name, data)
	doc, err := document.New(path, 0)
	require.NoError(self.T(), err)
	return doc
}

func (self *ScannerTestSuite) TestShortCircuit() {
	doc := self.newDocument("test.doc", []byte("data"))

	first := newFake("first", detectors.NEGATIVE)
	second := newFake("second", detectors.POSITIVE)
	third := newFake("third", detectors.POSITIVE)

	scanner := NewScannerWithStrategies(self.config_obj, first, second, third)
	verdict, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)

	assert.True(self.T(), verdict.MacrosPresent)
	assert.Equal(self.T(), constants.MACROS_PRESENT, verdict.String())
	assert.Equal(self.T(), 1, first.Calls())
	assert.Equal(self.T(), 1, second.Calls())
	assert.Equal(self.T(), 0, third.Calls())

	require.Equal(self.T(), 2, len(verdict.Outcomes))
	assert.Equal(self.T(), "second", verdict.Outcomes[1].Strategy)
}

func (self *ScannerTestSuite) TestFailuresAreInconclusive() {
	doc := self.newDocument("test.doc", []byte("data"))

	failing := newFake("failing", detectors.NEGATIVE)
	failing.err = errors.New("tool unavailable")

	panicking := newFake("panicking", detectors.NEGATIVE)
	panicking.panics = true

	negative := newFake("negative", detectors.NEGATIVE)
	inconclusive := newFake("inconclusive", detectors.INCONCLUSIVE)

	scanner := NewScannerWithStrategies(self.config_obj,
		failing, panicking, negative, inconclusive)
	verdict, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)

	assert.False(self.T(), verdict.MacrosPresent)
	assert.Equal(self.T(), constants.NO_MACROS, verdict.String())
	require.Equal(self.T(), 4, len(verdict.Outcomes))

	assert.Equal(self.T(), detectors.INCONCLUSIVE, verdict.Outcomes[0].Result.Verdict)
	assert.Equal(self.T(), "tool unavailable", verdict.Outcomes[0].Result.Reason)

	assert.Equal(self.T(), detectors.INCONCLUSIVE, verdict.Outcomes[1].Result.Verdict)
	assert.Contains(self.T(), verdict.Outcomes[1].Result.Reason, "strategy exploded")
	assert.NotContains(self.T(), verdict.Outcomes[1].Result.Reason, "\n")

	assert.Equal(self.T(), detectors.NEGATIVE, verdict.Outcomes[2].Result.Verdict)
	assert.Equal(self.T(), detectors.INCONCLUSIVE, verdict.Outcomes[3].Result.Verdict)
}

// A failure early in the chain does not stop later strategies from
// finding macros.
func (self *ScannerTestSuite) TestFaultIsolation() {
	doc := self.newDocument("book.xls", vtesting.ExcelWithMacros())

	scanner := NewScanner(self.config_obj)
	verdict, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)
	assert.Equal(self.T(), constants.MACROS_PRESENT, verdict.String())

	require.Equal(self.T(), 3, len(verdict.Outcomes))
	assert.Equal(self.T(), constants.STRATEGY_TRIAGE, verdict.Outcomes[0].Strategy)
	assert.Equal(self.T(), detectors.INCONCLUSIVE, verdict.Outcomes[0].Result.Verdict)
	assert.Contains(self.T(), verdict.Outcomes[0].Result.Reason, "tool unavailable")

	assert.Equal(self.T(), constants.STRATEGY_STREAM_MARKER, verdict.Outcomes[1].Strategy)
	assert.Equal(self.T(), detectors.INCONCLUSIVE, verdict.Outcomes[1].Result.Verdict)

	assert.Equal(self.T(), constants.STRATEGY_OLE_STRUCTURE, verdict.Outcomes[2].Strategy)
	assert.Equal(self.T(), detectors.POSITIVE, verdict.Outcomes[2].Result.Verdict)
}

func (self *ScannerTestSuite) TestCleanWorkbook() {
	doc := self.newDocument("book.xls", vtesting.ExcelWithoutMacros())

	verdict, err := NewScanner(self.config_obj).Scan(context.Background(), doc)
	require.NoError(self.T(), err)
	assert.Equal(self.T(), constants.NO_MACROS, verdict.String())
	assert.Equal(self.T(), len(constants.STRATEGY_ORDER), len(verdict.Outcomes))

	for idx, outcome := range verdict.Outcomes {
		assert.Equal(self.T(), constants.STRATEGY_ORDER[idx], outcome.Strategy)
		assert.NotEqual(self.T(), detectors.POSITIVE, outcome.Result.Verdict)
	}
}

func (self *ScannerTestSuite) TestUnrecognizedContent() {
	doc := self.newDocument("notes.txt", []byte("Dear diary"))

	verdict, err := NewScanner(self.config_obj).Scan(context.Background(), doc)
	require.NoError(self.T(), err)
	assert.Equal(self.T(), constants.NO_MACROS, verdict.String())
}

// Macros only reachable through an embedded OLE object are found by
// the archive walk.
func (self *ScannerTestSuite) TestEmbeddedMacros() {
	doc := self.newDocument("report.docx", vtesting.BuildZip(
		vtesting.ZipEntry{Name: "word/document.xml", Data: []byte("<document/>")},
		vtesting.ZipEntry{Name: "word/embeddings/oleObject1.bin",
			Data: vtesting.BuildCompoundFile(vtesting.OLEEntry{
				Name: "Macros", Data: []byte("Attribute VB_Name"),
			})},
	))

	vba := detectors.NewVBAParserDetector(markerParser("Attribute VB_Name"))
	scanner := NewScannerWithStrategies(self.config_obj,
		detectors.NewOLEStructureDetector(),
		vba,
		detectors.NewNestedContainerDetector(vba))

	verdict, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)
	assert.Equal(self.T(), constants.MACROS_PRESENT, verdict.String())

	require.Equal(self.T(), 3, len(verdict.Outcomes))
	assert.Equal(self.T(), detectors.NEGATIVE, verdict.Outcomes[1].Result.Verdict)
	assert.Equal(self.T(), constants.STRATEGY_NESTED, verdict.Outcomes[2].Strategy)
	assert.Equal(self.T(), detectors.POSITIVE, verdict.Outcomes[2].Result.Verdict)
}

func (self *ScannerTestSuite) TestIdempotent() {
	doc := self.newDocument("book.xls", vtesting.ExcelWithMacros())
	scanner := NewScanner(self.config_obj)

	first, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)

	second, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)

	assert.Equal(self.T(), first.String(), second.String())
	assert.Equal(self.T(), first.Rows(), second.Rows())
	assert.NotEqual(self.T(), first.ScanId, second.ScanId)
}

func (self *ScannerTestSuite) TestDisabledStrategies() {
	self.config_obj.DisabledStrategies = []string{
		constants.STRATEGY_TRIAGE, constants.STRATEGY_OLE_STRUCTURE}

	scanner := NewScanner(self.config_obj)
	assert.Equal(self.T(), []string{
		constants.STRATEGY_STREAM_MARKER,
		constants.STRATEGY_VBA_PARSER,
		constants.STRATEGY_NESTED,
	}, scanner.Strategies())
}

func (self *ScannerTestSuite) TestCancellation() {
	doc := self.newDocument("test.doc", []byte("data"))

	ctx, cancel := context.WithCancel(context.Background())

	first := newFake("first", detectors.NEGATIVE)
	second := newFake("second", detectors.POSITIVE)

	states := []State{}
	scanner := NewScannerWithStrategies(self.config_obj, first, second).
		WithTransitionHook(func(from, to State, index int) {
			states = append(states, to)

			// Cancel while the first strategy is running.
			if to == RUNNING && index == 0 {
				cancel()
			}
		})

	verdict, err := scanner.Scan(ctx, doc)
	assert.True(self.T(), errors.Is(err, context.Canceled))
	assert.Nil(self.T(), verdict)
	assert.Equal(self.T(), 1, first.Calls())
	assert.Equal(self.T(), 0, second.Calls())
	assert.Equal(self.T(), []State{RUNNING}, states)
}

func (self *ScannerTestSuite) TestTransitions() {
	doc := self.newDocument("test.doc", []byte("data"))

	type transition struct {
		from, to State
		index    int
	}
	transitions := []transition{}

	scanner := NewScannerWithStrategies(self.config_obj,
		newFake("first", detectors.NEGATIVE),
		newFake("second", detectors.INCONCLUSIVE)).
		WithTransitionHook(func(from, to State, index int) {
			transitions = append(transitions, transition{from, to, index})
		})

	_, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)

	assert.Equal(self.T(), []transition{
		{NOT_STARTED, RUNNING, 0},
		{RUNNING, RUNNING, 1},
		{RUNNING, DONE, -1},
	}, transitions)
}

func (self *ScannerTestSuite) TestEmptyChain() {
	doc := self.newDocument("test.doc", []byte("data"))

	verdict, err := NewScannerWithStrategies(self.config_obj).Scan(
		context.Background(), doc)
	require.NoError(self.T(), err)
	assert.Equal(self.T(), constants.NO_MACROS, verdict.String())
	assert.Equal(self.T(), 0, len(verdict.Outcomes))
}

func (self *ScannerTestSuite) TestMetrics() {
	doc := self.newDocument("test.doc", []byte("data"))
	counter := metricScans.WithLabelValues(constants.MACROS_PRESENT)

	before, err := utils.GetCounterValue(counter)
	require.NoError(self.T(), err)

	_, err = NewScannerWithStrategies(self.config_obj,
		newFake("positive", detectors.POSITIVE)).Scan(
		context.Background(), doc)
	require.NoError(self.T(), err)

	after, err := utils.GetCounterValue(counter)
	require.NoError(self.T(), err)
	assert.Equal(self.T(), before+1, after)

	buf := &strings.Builder{}
	require.NoError(self.T(), WriteMetrics(buf))
	assert.Contains(self.T(), buf.String(), "macroscan_scans_total")
	assert.Contains(self.T(), buf.String(), "verdict="+constants.MACROS_PRESENT)
	assert.Contains(self.T(), buf.String(), "strategy=positive")
}

func (self *ScannerTestSuite) TestReport() {
	doc := self.newDocument("book.xls", vtesting.ExcelWithMacros())

	triage := &config_types.ToolConfig{Argv: []string{"olevba", "-t"}}
	stream_dump := &config_types.ToolConfig{Argv: []string{"oledump.py"}}

	scanner := NewScannerWithStrategies(self.config_obj,
		detectors.NewTriageDetector(triage,
			&fakeRunner{stdout: "OLE  book.xls\nnothing found"}),
		detectors.NewStreamMarkerDetector(stream_dump,
			&fakeRunner{stdout: "  1:      4096 'Workbook'"}),
		detectors.NewOLEStructureDetector(),
		newFake("never_run", detectors.POSITIVE),
	)

	verdict, err := scanner.Scan(context.Background(), doc)
	require.NoError(self.T(), err)

	goldie.AssertJson(self.T(), "TestScanReport", verdict.Rows())

	buf := &strings.Builder{}
	verdict.WriteTable(buf)
	assert.Contains(self.T(), buf.String(), "both Workbook and _VBA_PROJECT_CUR present")
	assert.Contains(self.T(), buf.String(), constants.MACROS_PRESENT)
	assert.NotContains(self.T(), buf.String(), "never_run")
}

func TestScanner(t *testing.T) {
	suite.Run(t, &ScannerTestSuite{})
}
