package controller

import "github.com/omarthisside/annoted/internal/annotation"

var toolKeys = map[string]annotation.Tool{
	"p": annotation.ToolPen,
	"h": annotation.ToolHighlighter,
	"r": annotation.ToolRectangle,
	"c": annotation.ToolCircle,
	"a": annotation.ToolArrow,
	"t": annotation.ToolText,
	"m": annotation.ToolMove,
	"e": annotation.ToolErase,
}

// HandleKey dispatches a single-key shortcut. mod is the platform
// modifier (ctrl or cmd). Shortcuts are ignored while a text entry has
// focus. Returns whether the key was handled.
func (c *Controller) HandleKey(key string, mod, shift bool) bool {
	if c.EditingText() {
		return false
	}
	if mod {
		switch key {
		case "z":
			if shift {
				return c.log.Redo()
			}
			return c.log.Undo()
		case "y":
			return c.log.Redo()
		}
		return false
	}
	if tool, ok := toolKeys[key]; ok {
		c.SetTool(tool)
		return true
	}
	switch key {
	case "z":
		return c.log.Undo()
	case "y":
		return c.log.Redo()
	case "x":
		c.ClearAll()
		return true
	case "s":
		if c.OnCapture != nil {
			c.OnCapture()
			return true
		}
	case "f":
		if c.OnFullPage != nil {
			c.OnFullPage()
			return true
		}
	}
	return false
}
