/*
   Velociraptor - Dig Deeper
   Copyright (C) 2019-2025 Rapid7 Inc.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/detectors"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/logging"
	"www.velocidex.com/golang/macroscan/utils"
)

type State int

const (
	NOT_STARTED State = iota
	RUNNING
	DONE
)

func (self State) String() string {
	switch self {
	case RUNNING:
		return "RUNNING"
	case DONE:
		return "DONE"
	default:
		return "NOT_STARTED"
	}
}

// Called on every state change. index is the position of the
// strategy about to run in the RUNNING state and -1 otherwise.
type TransitionHook func(from, to State, index int)

// Scanner runs the strategies in order and stops at the first
// positive. A strategy that fails never aborts the scan.
type Scanner struct {
	config_obj    *config_types.Config
	strategies    []detectors.Strategy
	on_transition TransitionHook
	logger        *logging.LogContext
}

// NewScanner builds the production strategy chain, cheapest first:
// external tools, then structural checks, then the recursive archive
// walk. Strategies disabled in the config are left out.
func NewScanner(config_obj *config_types.Config) *Scanner {
	vba_detector := detectors.NewVBAParserDetector(nil)

	all := []detectors.Strategy{
		detectors.NewTriageDetector(config_obj.Triage,
			detectors.NewExecRunner(config_obj.Triage)),
		detectors.NewStreamMarkerDetector(config_obj.StreamDump,
			detectors.NewExecRunner(config_obj.StreamDump)),
		detectors.NewOLEStructureDetector(),
		vba_detector,
		detectors.NewNestedContainerDetector(vba_detector),
	}

	strategies := make([]detectors.Strategy, 0, len(all))
	for _, strategy := range all {
		if utils.InString(config_obj.DisabledStrategies, strategy.Name()) {
			continue
		}
		strategies = append(strategies, strategy)
	}

	return NewScannerWithStrategies(config_obj, strategies...)
}

func NewScannerWithStrategies(
	config_obj *config_types.Config,
	strategies ...detectors.Strategy) *Scanner {
	return &Scanner{
		config_obj: config_obj,
		strategies: strategies,
		logger:     logging.GetLogger(config_obj, &logging.ScannerComponent),
	}
}

func (self *Scanner) WithTransitionHook(hook TransitionHook) *Scanner {
	self.on_transition = hook
	return self
}

func (self *Scanner) Strategies() []string {
	result := make([]string, 0, len(self.strategies))
	for _, strategy := range self.strategies {
		result = append(result, strategy.Name())
	}
	return result
}

type Outcome struct {
	Strategy string
	Result   detectors.Result
	Duration time.Duration
}

type Verdict struct {
	ScanId        string
	MacrosPresent bool

	// One entry per strategy that actually ran, in order.
	Outcomes []Outcome
}

func (self *Verdict) String() string {
	if self.MacrosPresent {
		return constants.MACROS_PRESENT
	}
	return constants.NO_MACROS
}

type scanState struct {
	state State
	hook  TransitionHook
}

func (self *scanState) transition(to State, index int) {
	from := self.state
	self.state = to
	if self.hook != nil {
		self.hook(from, to, index)
	}
}

// Scan is the only blocking operation. Cancellation is checked
// between strategies; a cancelled scan returns the context error and
// no verdict.
func (self *Scanner) Scan(
	ctx context.Context, doc *document.Document) (*Verdict, error) {
	verdict := &Verdict{ScanId: uuid.New().String()}
	logger := self.logger.WithField("scan_id", verdict.ScanId)
	state := &scanState{state: NOT_STARTED, hook: self.on_transition}

	logger.Debug("Scanning %v (%v, %v bytes)", doc.Path(), doc.Kind(), doc.Size())

	for idx, strategy := range self.strategies {
		err := ctx.Err()
		if err != nil {
			return nil, err
		}

		state.transition(RUNNING, idx)

		start := time.Now()
		result := self.runStrategy(ctx, strategy, doc)
		outcome := Outcome{
			Strategy: strategy.Name(),
			Result:   result,
			Duration: time.Since(start),
		}
		verdict.Outcomes = append(verdict.Outcomes, outcome)
		metricStrategyResults.WithLabelValues(
			outcome.Strategy, result.Verdict.String()).Inc()

		logger.Debug("%v: %v in %v", outcome.Strategy, result, outcome.Duration)

		if result.Verdict == detectors.POSITIVE {
			verdict.MacrosPresent = true
			break
		}
	}

	state.transition(DONE, -1)
	metricScans.WithLabelValues(verdict.String()).Inc()
	logger.Info("%v: %v", doc.Path(), verdict)

	return verdict, nil
}

// Runs a single strategy, mapping every error and panic to
// INCONCLUSIVE.
func (self *Scanner) runStrategy(
	ctx context.Context, strategy detectors.Strategy,
	doc *document.Document) (result detectors.Result) {

	defer func() {
		r := recover()
		if r != nil {
			err := utils.RecoverError(r, nil)
			self.logger.Error("%v: %v", strategy.Name(), err)
			result = detectors.Inconclusive("%v", utils.FirstLine(err.Error()))
		}
	}()

	result, err := strategy.Detect(ctx, doc)
	if err != nil {
		self.logger.Debug("%v: %v", strategy.Name(), err)
		return detectors.Inconclusive("%v", utils.FirstLine(err.Error()))
	}

	// Strategies may return INCONCLUSIVE directly too.
	if result.Verdict == detectors.INCONCLUSIVE && result.Reason == "" {
		result.Reason = fmt.Sprintf("%v gave no reason", strategy.Name())
	}
	return result
}
