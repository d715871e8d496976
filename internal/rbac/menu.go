package rbac

import (
	_ "embed"
	"fmt"

	"github.com/schooldesk/console/types"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var menuYAML []byte

var defaultMenu = mustParseMenu(menuYAML)

// DefaultMenu returns a fresh copy of the console navigation tree.
func DefaultMenu() []types.MenuNode {
	return cloneNodes(defaultMenu)
}

// ParseMenu decodes a YAML navigation tree and validates its role
// identifiers.
func ParseMenu(data []byte) ([]types.MenuNode, error) {
	var nodes []types.MenuNode
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	if err := validateNodes(nodes, ""); err != nil {
		return nil, err
	}
	return nodes, nil
}

func mustParseMenu(data []byte) []types.MenuNode {
	nodes, err := ParseMenu(data)
	if err != nil {
		panic(err)
	}
	return nodes
}

func validateNodes(nodes []types.MenuNode, parent string) error {
	for i, node := range nodes {
		where := fmt.Sprintf("%s/%d", parent, i)
		if node.Label == "" {
			return fmt.Errorf("menu node %s: label is required", where)
		}
		if node.IsGroup() && node.Path != "" {
			return fmt.Errorf("menu node %q: groups must not have a path", node.Label)
		}
		if !node.IsGroup() && node.Path == "" {
			return fmt.Errorf("menu node %q: leaf needs a path", node.Label)
		}
		for j, role := range node.Roles {
			parsed, err := types.ParseRole(string(role))
			if err != nil {
				return fmt.Errorf("menu node %q: %w", node.Label, err)
			}
			nodes[i].Roles[j] = parsed
		}
		if err := validateNodes(node.Children, where); err != nil {
			return err
		}
	}
	return nil
}

func cloneNodes(nodes []types.MenuNode) []types.MenuNode {
	if nodes == nil {
		return nil
	}
	out := make([]types.MenuNode, len(nodes))
	for i, node := range nodes {
		out[i] = node
		if node.Roles != nil {
			out[i].Roles = append([]types.Role(nil), node.Roles...)
		}
		out[i].Children = cloneNodes(node.Children)
	}
	return out
}
