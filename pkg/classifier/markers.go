package classifier

// Marker lines emitted by the harness runner. A marker only counts when it
// is the whole (trimmed) line.
const (
	markerRuntimeError   = "RUNTIME ERROR"
	markerTimeout        = "TIME LIMIT EXCEEDED"
	markerHarnessSuccess = "SUCCESSFUL HARNESS"
	markerHarnessFailure = "FAILED HARNESS"
)

// markerState accumulates the flags carried by marker lines.
type markerState struct {
	runtimeError bool
	timedOut     bool
	succeeded    bool
}

// fold applies one line to the accumulator and reports whether the line
// was a marker.
//
// runtimeError and timedOut are sticky. A success marker sets succeeded
// and a failure marker clears it, so the last of the two wins.
func (m markerState) fold(line string) (markerState, bool) {
	switch line {
	case markerRuntimeError:
		m.runtimeError = true
	case markerTimeout:
		m.timedOut = true
	case markerHarnessSuccess:
		m.succeeded = true
	case markerHarnessFailure:
		m.succeeded = false
	default:
		return m, false
	}

	return m, true
}

// foldMarkers reduces lines to a markerState and returns the lines that
// were not markers, in their original order.
func foldMarkers(lines []string) (markerState, []string) {
	var (
		state markerState
		data  = make([]string, 0, len(lines))
	)

	for _, line := range lines {
		next, isMarker := state.fold(line)
		state = next

		if !isMarker {
			data = append(data, line)
		}
	}

	return state, data
}

func (m markerState) outcome() HarnessOutcome {
	if m.succeeded {
		return OutcomeSucceeded
	}

	return OutcomeFailed
}
