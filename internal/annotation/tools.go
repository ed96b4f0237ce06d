package annotation

// Tool is the active editing tool.
type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolRectangle   Tool = "rectangle"
	ToolCircle      Tool = "circle"
	ToolArrow       Tool = "arrow"
	ToolText        Tool = "text"
	ToolMove        Tool = "move"
	ToolErase       Tool = "erase"
)

// ToolState is the snapshot of tool settings persisted with a session and
// carried inside share links.
type ToolState struct {
	Tool      Tool     `json:"tool"`
	Color     Color    `json:"color"`
	Width     int      `json:"width"`
	LastShape Kind     `json:"lastShape"`
	Fill      FillMode `json:"fill"`
}

// DefaultToolState is the state a fresh session starts from.
func DefaultToolState() ToolState {
	return ToolState{
		Tool:      ToolPen,
		Color:     ColorRed,
		Width:     3,
		LastShape: KindRectangle,
		Fill:      FillOutline,
	}
}

// ShapeKind maps a shape tool to the annotation kind it draws, or "" for
// non-shape tools.
func ShapeKind(t Tool) Kind {
	switch t {
	case ToolRectangle:
		return KindRectangle
	case ToolCircle:
		return KindCircle
	case ToolArrow:
		return KindArrow
	}
	return ""
}
