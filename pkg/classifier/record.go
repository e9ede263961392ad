package classifier

import (
	"encoding/json"
	"fmt"
)

// Unknown is the sentinel stored for filename fields that could not be
// recovered.
const Unknown = "unknown"

// HarnessOutcome is the tri-state harness result recorded in a report.
type HarnessOutcome int

const (
	// OutcomeFailed means no success marker survived the fold.
	OutcomeFailed HarnessOutcome = iota
	// OutcomeSucceeded means the last success/failure marker was a success.
	OutcomeSucceeded
	// OutcomeLinkFailed means the harness never linked against its target.
	OutcomeLinkFailed
)

// FailedLink is the stored value of OutcomeLinkFailed.
const FailedLink = "FAILED LINK"

// String returns the persisted form of the outcome.
func (o HarnessOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "true"
	case OutcomeLinkFailed:
		return FailedLink
	default:
		return "false"
	}
}

// ParseHarnessOutcome converts a persisted outcome back to its value.
func ParseHarnessOutcome(s string) (HarnessOutcome, error) {
	switch s {
	case "true":
		return OutcomeSucceeded, nil
	case "false":
		return OutcomeFailed, nil
	case FailedLink:
		return OutcomeLinkFailed, nil
	default:
		return OutcomeFailed, fmt.Errorf("unknown harness outcome %q", s)
	}
}

// MarshalJSON encodes success and failure as booleans and link failures
// as the FAILED LINK string.
func (o HarnessOutcome) MarshalJSON() ([]byte, error) {
	switch o {
	case OutcomeSucceeded:
		return []byte("true"), nil
	case OutcomeLinkFailed:
		return json.Marshal(FailedLink)
	default:
		return []byte("false"), nil
	}
}

// HarnessRecord is the structured result of classifying one harness run.
type HarnessRecord struct {
	FileCode         string         `json:"file_code"`
	SubsystemPath    string         `json:"subsystem_path"`
	ToolchainVersion string         `json:"toolchain_version"`
	HarnessType      string         `json:"harness_type"`
	FileName         string         `json:"file_name"`
	RuntimeSeconds   float64        `json:"runtime_seconds"`
	MemoryKB         int64          `json:"memory_kb"`
	CodeFileSize     int64          `json:"code_file_size"`
	HarnessFileSize  int64          `json:"harness_file_size"`
	RuntimeError     bool           `json:"runtime_error"`
	TimedOut         bool           `json:"timed_out"`
	HarnessSuccess   HarnessOutcome `json:"harness_success"`
}
