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
package detectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	humanize "github.com/dustin/go-humanize"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/utils"
)

const (
	// Tool output beyond this is discarded.
	MAX_TOOL_OUTPUT = 16 * 1024 * 1024
)

type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runs an external command to completion. Implementations must bound
// the run time and classify failures as DetectionErrors of kind
// ToolUnavailable, ToolTimeout or ToolAbnormalExit.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*CommandResult, error)
}

type ExecRunner struct {
	Timeout           time.Duration
	AcceptedExitCodes []int
	MaxOutput         int
}

func NewExecRunner(tool *config_types.ToolConfig) *ExecRunner {
	result := &ExecRunner{
		Timeout:           constants.DEFAULT_TOOL_TIMEOUT_SEC * time.Second,
		AcceptedExitCodes: []int{0},
		MaxOutput:         MAX_TOOL_OUTPUT,
	}

	if tool != nil {
		if tool.TimeoutSeconds > 0 {
			result.Timeout = time.Duration(tool.TimeoutSeconds) * time.Second
		}
		if len(tool.AcceptedExitCodes) > 0 {
			result.AcceptedExitCodes = tool.AcceptedExitCodes
		}
	}

	return result
}

func (self *ExecRunner) Run(
	ctx context.Context, argv []string) (*CommandResult, error) {
	path, err := ResolveTool(argv)
	if err != nil {
		return nil, err
	}

	sub_ctx, cancel := context.WithTimeout(ctx, self.Timeout)
	defer cancel()

	stdout := &cappedBuffer{limit: self.MaxOutput}
	stderr := &cappedBuffer{limit: self.MaxOutput}

	command := exec.CommandContext(sub_ctx, path, argv[1:]...)
	command.Stdout = stdout
	command.Stderr = stderr

	// Do not wait forever for grandchildren holding our pipes after
	// the process itself was killed.
	command.WaitDelay = time.Second

	err = command.Run()

	// The deadline is checked first because a killed process also
	// reports an ExitError.
	if errors.Is(sub_ctx.Err(), context.DeadlineExceeded) &&
		ctx.Err() == nil {
		return nil, newDetectionError(ToolTimeout, "",
			fmt.Errorf("%v did not complete within %v", argv[0], self.Timeout))
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := &CommandResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		exit_err, ok := err.(*exec.ExitError)
		if !ok {
			return nil, newDetectionError(ToolUnavailable, "", err)
		}
		result.ExitCode = exit_err.ExitCode()
	}

	// ExitCode is -1 when the process was terminated by a signal.
	if result.ExitCode < 0 || !intIn(self.AcceptedExitCodes, result.ExitCode) {
		return nil, newDetectionError(ToolAbnormalExit, "",
			fmt.Errorf("%v exited with status %v: %v", argv[0],
				result.ExitCode,
				utils.Elide(utils.FirstLine(string(result.Stderr)), 120)))
	}

	if stdout.dropped > 0 {
		logger := getDetectorLogger()
		logger.Debug("%v: discarded %v of output", argv[0],
			humanize.IBytes(uint64(stdout.dropped)))
	}

	return result, nil
}

// ResolveTool finds the executable for argv[0] in the PATH.
func ResolveTool(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", newDetectionError(ToolUnavailable, "",
			errors.New("no command to run"))
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return "", newDetectionError(ToolUnavailable, "", err)
	}
	return path, nil
}

func intIn(hay []int, needle int) bool {
	for _, i := range hay {
		if i == needle {
			return true
		}
	}
	return false
}

// A buffer which silently drops writes past its limit. Returning a
// short write would make the child see a broken pipe.
type cappedBuffer struct {
	bytes.Buffer
	limit   int
	dropped int
}

func (self *cappedBuffer) Write(p []byte) (int, error) {
	available := self.limit - self.Buffer.Len()
	if available <= 0 {
		self.dropped += len(p)
		return len(p), nil
	}

	if len(p) > available {
		self.dropped += len(p) - available
		self.Buffer.Write(p[:available])
		return len(p), nil
	}

	return self.Buffer.Write(p)
}
