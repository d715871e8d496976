package types

// MenuNode is one entry of the static navigation tree.
// A node with children is a group: its children are navigated instead of Path.
type MenuNode struct {
	// Label is the text shown in the navigation.
	Label string `json:"label" yaml:"label"`

	// Icon is an optional icon identifier understood by the layout.
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`

	// Path is the optional navigation target.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Children is the ordered list of nested entries.
	Children []MenuNode `json:"children,omitempty" yaml:"children,omitempty"`

	// Roles restricts visibility. Empty means every authenticated role.
	Roles []Role `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// IsGroup reports whether the node has children.
func (n MenuNode) IsGroup() bool {
	return len(n.Children) > 0
}
