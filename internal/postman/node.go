package postman

import (
	"encoding/json"
)

// Node is one entry of a Postman item tree: a *Folder or a *Leaf.
type Node interface {
	node()
}

// Folder groups child nodes. It contributes no request of its own.
type Folder struct {
	Name     string
	Children []Node
}

// Leaf holds exactly one request definition
type Leaf struct {
	Name        string
	Description string
	request     rawRequest
}

func (*Folder) node() {}
func (*Leaf) node()   {}

// classifyItems turns a JSON array of items into nodes. Entries that are
// neither a folder nor a leaf are dropped.
func classifyItems(raw json.RawMessage) []Node {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		if n := classify(item); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// classify decides the node kind once: an item array makes a folder, a
// request object makes a leaf, anything else yields nil.
func classify(raw json.RawMessage) Node {
	var n rawNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}

	if jsonKind(n.Item) == '[' {
		return &Folder{Name: n.Name.Value, Children: classifyItems(n.Item)}
	}

	if jsonKind(n.Request) == '{' {
		var req rawRequest
		if err := json.Unmarshal(n.Request, &req); err != nil {
			return nil
		}
		desc := string(req.Description)
		if desc == "" {
			desc = string(n.Description)
		}
		return &Leaf{Name: n.Name.Value, Description: desc, request: req}
	}

	return nil
}

// walk visits leaves depth-first in document order
func walk(nodes []Node, visit func(*Leaf)) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Folder:
			walk(n.Children, visit)
		case *Leaf:
			visit(n)
		}
	}
}
