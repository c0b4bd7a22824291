package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ckpd/flowcanvas/pkg/transitions"
)

// Branch is one entry of a branches array. Unnamed entries carry only the
// entry node.
type Branch struct {
	Name      string `json:"name,omitempty"`
	EntryNode string `json:"entry_node"`
}

// Rule is one entry of a logic node's rules array.
type Rule struct {
	Condition string `json:"condition"`
	NextNode  string `json:"next_node"`
}

// Node is a document node object. The type discriminant and connection
// fields are lifted into typed slots; every other field, known or unknown,
// is carried verbatim in Rest so a round-trip never loses data.
type Node struct {
	Type        string
	Connections map[string]string // scalar connection key -> target node id
	Branches    []Branch
	Rules       []Rule
	CustomEdges map[string]string          // _custom_edges: label -> target node id
	Rest        map[string]json.RawMessage // all remaining fields, verbatim
}

// Document is the persisted workflow definition: a start-node reference and
// a map of node objects. Node insertion order is preserved across a
// round-trip because first-node fallbacks and import order depend on it.
type Document struct {
	StartNode string
	Nodes     map[string]*Node
	Order     []string                   // node ids in document order
	Extra     map[string]json.RawMessage // unknown top-level fields
}

// ParseDocument decodes document bytes. It fails only on structurally
// malformed input (ErrMalformedDocument); unknown fields and unknown node
// types parse fine.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}

	err := json.Unmarshal(data, doc)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// NodeOrder returns node ids in document order. Ids added to Nodes without
// an Order entry are appended sorted, so marshaling stays deterministic.
func (d *Document) NodeOrder() []string {
	order := make([]string, 0, len(d.Nodes))
	seen := make(map[string]bool, len(d.Nodes))

	for _, id := range d.Order {
		if _, ok := d.Nodes[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}

	unordered := make([]string, 0)

	for id := range d.Nodes {
		if !seen[id] {
			unordered = append(unordered, id)
		}
	}

	sort.Strings(unordered)

	return append(order, unordered...)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	if err := expectObjectStart(decoder, "document"); err != nil {
		return err
	}

	d.StartNode = ""
	d.Nodes = make(map[string]*Node)
	d.Order = nil
	d.Extra = make(map[string]json.RawMessage)

	sawNodes := false

	for decoder.More() {
		key, err := decodeKey(decoder)
		if err != nil {
			return err
		}

		switch key {
		case "start_node":
			var start string

			if err := decoder.Decode(&start); err != nil {
				return fmt.Errorf("%w: start_node is not a string", ErrMalformedDocument)
			}

			d.StartNode = start
		case "nodes":
			if err := d.decodeNodes(decoder); err != nil {
				return err
			}

			sawNodes = true
		default:
			var raw json.RawMessage

			if err := decoder.Decode(&raw); err != nil {
				return fmt.Errorf("%w: field %q: %v", ErrMalformedDocument, key, err)
			}

			d.Extra[key] = raw
		}
	}

	if !sawNodes {
		return fmt.Errorf("%w: document has no nodes object", ErrMalformedDocument)
	}

	return nil
}

func (d *Document) decodeNodes(decoder *json.Decoder) error {
	if err := expectObjectStart(decoder, "nodes"); err != nil {
		return err
	}

	for decoder.More() {
		id, err := decodeKey(decoder)
		if err != nil {
			return err
		}

		node := &Node{}

		if err := decoder.Decode(node); err != nil {
			return fmt.Errorf("node %q: %w", id, err)
		}

		d.Nodes[id] = node
		d.Order = append(d.Order, id)
	}

	// Consume the closing brace of the nodes object.
	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"start_node":`)

	start, err := json.Marshal(d.StartNode)
	if err != nil {
		return nil, err
	}

	buf.Write(start)
	buf.WriteString(`,"nodes":{`)

	for i, id := range d.NodeOrder() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(d.Nodes[id])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal node %s: %w", id, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	extraKeys := make([]string, 0, len(d.Extra))
	for key := range d.Extra {
		extraKeys = append(extraKeys, key)
	}

	sort.Strings(extraKeys)

	for _, key := range extraKeys {
		rawKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		buf.WriteByte(',')
		buf.Write(rawKey)
		buf.WriteByte(':')
		buf.Write(d.Extra[key])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage

	err := json.Unmarshal(data, &fields)
	if err != nil {
		return fmt.Errorf("%w: node is not an object", ErrMalformedDocument)
	}

	var nodeType string
	if raw, ok := fields["type"]; !ok || json.Unmarshal(raw, &nodeType) != nil || nodeType == "" {
		return fmt.Errorf("%w: node has no type", ErrMalformedDocument)
	}

	n.Type = nodeType
	n.Connections = make(map[string]string)
	n.Branches = nil
	n.Rules = nil
	n.CustomEdges = nil
	n.Rest = make(map[string]json.RawMessage)

	for key, raw := range fields {
		switch {
		case key == "type":
		case transitions.IsScalarKey(key):
			var target string

			// Empty and non-string values carry no connection; they stay in
			// Rest so the original bytes survive a round-trip.
			if err := json.Unmarshal(raw, &target); err == nil && target != "" {
				n.Connections[key] = target
			} else {
				n.Rest[key] = raw
			}
		case key == transitions.BranchesKey:
			if branches, ok := decodeBranches(raw); ok {
				n.Branches = branches
			} else {
				n.Rest[key] = raw
			}
		case key == transitions.RulesKey:
			if rules, ok := decodeRules(raw); ok {
				n.Rules = rules
			} else {
				n.Rest[key] = raw
			}
		case key == transitions.CustomEdgesKey:
			if custom, ok := decodeCustomEdges(raw); ok {
				n.CustomEdges = custom
			} else {
				n.Rest[key] = raw
			}
		default:
			n.Rest[key] = raw
		}
	}

	return nil
}

func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(n.Rest)+len(n.Connections)+4)

	for key, raw := range n.Rest {
		out[key] = raw
	}

	nodeType, err := json.Marshal(n.Type)
	if err != nil {
		return nil, err
	}

	out["type"] = nodeType

	for key, target := range n.Connections {
		raw, err := json.Marshal(target)
		if err != nil {
			return nil, err
		}

		out[key] = raw
	}

	if len(n.Branches) > 0 {
		raw, err := json.Marshal(n.Branches)
		if err != nil {
			return nil, err
		}

		out[transitions.BranchesKey] = raw
	}

	if len(n.Rules) > 0 {
		raw, err := json.Marshal(n.Rules)
		if err != nil {
			return nil, err
		}

		out[transitions.RulesKey] = raw
	}

	if len(n.CustomEdges) > 0 {
		raw, err := json.Marshal(n.CustomEdges)
		if err != nil {
			return nil, err
		}

		out[transitions.CustomEdgesKey] = raw
	}

	return json.Marshal(out)
}

// decodeBranches accepts only the modeled branch shape. Anything else (extra
// entry fields, empty targets, empty arrays) reports ok = false so the raw
// value passes through untouched instead of degrading silently.
func decodeBranches(raw json.RawMessage) ([]Branch, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var branches []Branch
	if err := decoder.Decode(&branches); err != nil || len(branches) == 0 {
		return nil, false
	}

	for _, branch := range branches {
		if branch.EntryNode == "" {
			return nil, false
		}
	}

	return branches, true
}

func decodeRules(raw json.RawMessage) ([]Rule, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var rules []Rule
	if err := decoder.Decode(&rules); err != nil || len(rules) == 0 {
		return nil, false
	}

	for _, rule := range rules {
		if rule.NextNode == "" {
			return nil, false
		}
	}

	return rules, true
}

func decodeCustomEdges(raw json.RawMessage) (map[string]string, bool) {
	var custom map[string]string
	if err := json.Unmarshal(raw, &custom); err != nil || len(custom) == 0 {
		return nil, false
	}

	for _, target := range custom {
		if target == "" {
			return nil, false
		}
	}

	return custom, true
}

func expectObjectStart(decoder *json.Decoder, what string) error {
	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: %s is not an object", ErrMalformedDocument, what)
	}

	return nil
}

func decodeKey(decoder *json.Decoder) (string, error) {
	token, err := decoder.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	key, ok := token.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token %v", ErrMalformedDocument, token)
	}

	return key, nil
}
