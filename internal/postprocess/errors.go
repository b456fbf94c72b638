package postprocess

import "fmt"

// Step identifies a post-processing stage
type Step string

const (
	StepDiscover  Step = "discover"
	StepStabilize Step = "stabilize"
	StepMux       Step = "mux"
	StepBurn      Step = "burn"
	StepMove      Step = "move"
)

// Discovery failure reasons
const (
	ReasonNoVideo   = "no video artifact found"
	ReasonNotStable = "artifact not stable"
)

// ArtifactDiscoveryError is returned when expected files are missing or
// still changing after the polling budget.
type ArtifactDiscoveryError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *ArtifactDiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s in %s: %v", e.Reason, e.Dir, e.Err)
	}
	return fmt.Sprintf("%s in %s", e.Reason, e.Dir)
}

func (e *ArtifactDiscoveryError) Unwrap() error {
	return e.Err
}

// PostProcessError wraps any failure after the download itself succeeded
type PostProcessError struct {
	Step Step
	Err  error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("post-processing failed at %s: %v", e.Step, e.Err)
}

func (e *PostProcessError) Unwrap() error {
	return e.Err
}
