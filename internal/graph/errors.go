package graph

import "fmt"

// MissingInputError reports that Insert named an upstream node that does
// not exist. The graph is left unchanged.
type MissingInputError struct {
	Slot int
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("graph: input %d does not exist", e.Slot)
}

// ErrUnknownNode reports that an operation named a node ID that isn't
// present.
var ErrUnknownNode = fmt.Errorf("graph: node does not exist")

// ErrCycle reports that an Insert would close a dependency cycle. The graph
// is left unchanged.
var ErrCycle = fmt.Errorf("graph: operation would create a dependency cycle")
