package engine

// PathNode is one node in the execution trace tree. Children are appended in
// evaluation order. The tree is built bottom-up during evaluation, owned by
// its EvaluationResult, and never mutated or shared after the call returns.
type PathNode struct {
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Result   any            `json:"result"`
	Details  map[string]any `json:"details,omitempty"`
	Children []*PathNode    `json:"children,omitempty"`
}

// Trace node types.
const (
	NodeEvaluation = "dmn_evaluation"
	NodeDecision   = "decision"
	NodeRule       = "rule"
	NodeLiteral    = "literal"
	NodeSource     = "source"
)

func newPathNode(nodeType, name string, details map[string]any) *PathNode {
	if details == nil {
		details = map[string]any{}
	}
	return &PathNode{Type: nodeType, Name: name, Details: details, Children: []*PathNode{}}
}

func (n *PathNode) addChild(child *PathNode) {
	n.Children = append(n.Children, child)
}
