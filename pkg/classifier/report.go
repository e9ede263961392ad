package classifier

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedReport is returned when a report does not have the expected
// shape.
var ErrMalformedReport = errors.New("malformed report")

// Header lines written by the execution wrapper ahead of the harness output.
var exitStatusPreambles = []string{
	"Command terminated by ",
	"Command exited with ",
}

const linkFailureMarker = "could not link harness"

// Fixed positions of the metrics in a report once markers and the exit
// status header are removed.
const (
	offsetUserTime        = 2
	offsetSystemTime      = 4
	offsetMemory          = 6
	offsetCodeFileSize    = 10
	offsetHarnessFileSize = 12
)

// reportMetrics is the report-derived part of a HarnessRecord.
type reportMetrics struct {
	runtimeSeconds  float64
	memoryKB        int64
	codeFileSize    int64
	harnessFileSize int64
	runtimeError    bool
	timedOut        bool
	outcome         HarnessOutcome
}

// parseReport extracts metrics from the lines of a report.
func parseReport(lines []string) (*reportMetrics, error) {
	trimmed := make([]string, len(lines))
	for i, line := range lines {
		trimmed[i] = strings.TrimSpace(line)
	}

	state, data := foldMarkers(trimmed)

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data lines", ErrMalformedReport)
	}

	if hasExitStatusPreamble(data[0]) {
		data = data[1:]
	}

	m := &reportMetrics{
		runtimeError: state.runtimeError,
		timedOut:     state.timedOut,
		outcome:      state.outcome(),
	}

	if len(data) > 0 && strings.Contains(data[0], linkFailureMarker) {
		m.outcome = OutcomeLinkFailed

		return m, nil
	}

	if len(data) <= offsetHarnessFileSize {
		return nil, fmt.Errorf("%w: expected at least %d data lines, got %d",
			ErrMalformedReport, offsetHarnessFileSize+1, len(data))
	}

	userTime, err := parseFloatAt(data, offsetUserTime)
	if err != nil {
		return nil, err
	}

	systemTime, err := parseFloatAt(data, offsetSystemTime)
	if err != nil {
		return nil, err
	}

	m.runtimeSeconds = userTime + systemTime

	if m.memoryKB, err = parseIntAt(data, offsetMemory); err != nil {
		return nil, err
	}

	if m.codeFileSize, err = parseIntAt(data, offsetCodeFileSize); err != nil {
		return nil, err
	}

	if m.harnessFileSize, err = parseIntAt(data, offsetHarnessFileSize); err != nil {
		return nil, err
	}

	return m, nil
}

func hasExitStatusPreamble(line string) bool {
	for _, p := range exitStatusPreambles {
		if strings.HasPrefix(line, p) {
			return true
		}
	}

	return false
}

func parseFloatAt(data []string, offset int) (float64, error) {
	v, err := strconv.ParseFloat(data[offset], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %w", ErrMalformedReport, offset, err)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: line %d: non-finite value %q",
			ErrMalformedReport, offset, data[offset])
	}

	return v, nil
}

func parseIntAt(data []string, offset int) (int64, error) {
	v, err := strconv.ParseInt(data[offset], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %w", ErrMalformedReport, offset, err)
	}

	return v, nil
}
