package script

// Case is a named sequence of steps executed strictly in order against one
// backend with one shared instance registry.
type Case struct {
	Name  string
	Steps []Step
}

// Run executes the case. Each step reports its own outcome; a failed or
// invalid step does not stop the remaining steps, matching the behavior of
// scripted contract tests where later inputs often assert independent state.
func (c *Case) Run(ctx *Context) {
	for index, step := range c.Steps {
		step.Run(ctx, index)
	}
}
