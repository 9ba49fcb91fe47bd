package pipeline

import "github.com/docwire/docwire-go/message"

// Chain composes an ordered list of stages. Composition is spelled out
// as Then; nothing runs until Run is called, whether or not the chain
// ends in a leaf.
type Chain struct {
	stages []Stage
}

// NewChain starts a chain with first.
func NewChain(first Stage) *Chain {
	return &Chain{stages: []Stage{first}}
}

// Then appends the next stage and returns the chain for further
// composition.
func (c *Chain) Then(s Stage) *Chain {
	c.stages = append(c.stages, s)
	return c
}

// IsLeaf reports whether the chain's last stage is a leaf. Appending a
// leaf does not start execution; an input adapter (package input) at
// the head of the chain does not run it either.
func (c *Chain) IsLeaf() bool {
	if len(c.stages) == 0 {
		return false
	}
	return c.stages[len(c.stages)-1].IsLeaf()
}

// Stages exposes the ordered stage list for the driver.
func (c *Chain) Stages() []Stage {
	return c.stages
}

// Run drives initial through the chain to completion.
func (c *Chain) Run(initial message.Message) error {
	return NewDriver(c.stages).Run(initial)
}
