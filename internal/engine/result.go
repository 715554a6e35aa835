package engine

// EvaluationResult is built fresh per evaluation and handed to the caller;
// nothing in it is cached or shared. Callers can tell "law does not apply"
// (a computed false or zero output) from "law could not be evaluated"
// (MissingRequired or a non-empty Errors list) - the two are never conflated.
type EvaluationResult struct {
	// Output maps output variable names to their values. Fields whose
	// required inputs could not be resolved are absent, not sentinel-valued.
	Output map[string]any `json:"output"`
	// RequirementsMet is true iff every source required by the evaluated
	// decision, transitively, actually resolved.
	RequirementsMet bool `json:"requirements_met"`
	// MissingRequired is true when a required input was unavailable.
	MissingRequired bool `json:"missing_required"`
	// Errors collects evaluation-time error descriptions in the order they
	// occurred. Output correctness is not guaranteed once any entry exists.
	Errors []string `json:"errors"`
	// Path is the execution trace root; its type is always "dmn_evaluation".
	Path *PathNode `json:"path"`
}
