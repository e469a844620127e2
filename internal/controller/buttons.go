package controller

// Buttons is the enablement of the actions offered for a selected node.
type Buttons struct {
	Start    bool `json:"start"`
	Stop     bool `json:"stop"`
	Edit     bool `json:"edit"`
	Settings bool `json:"settings"`
	Refresh  bool `json:"refresh"`
}

// Buttons derives action enablement for the selected target ("" for no
// selection or a non-target node).
func (c *Controller) Buttons(selected string) Buttons {
	startable := false
	if tree := c.Tree(); tree != nil && selected != "" {
		_, startable = tree.Target(selected)
	}
	running := c.IsWorking()
	return Buttons{
		Start:    startable && !running,
		Stop:     startable && running,
		Edit:     startable && !running,
		Settings: !running,
		Refresh:  !running && c.File() != "",
	}
}
