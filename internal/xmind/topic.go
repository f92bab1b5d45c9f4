package xmind

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/casemap/internal/mindmap"
	"github.com/google/uuid"
)

// Topic keys modeled by mindmap.Node. Everything else goes to Node.Extra.
const (
	keyID        = "id"
	keyClass     = "class"
	keyTitle     = "title"
	keyStructure = "structureClass"
	keyChildren  = "children"
	keyMarkers   = "markers"
	keyLabels    = "labels"
	keyNotes     = "notes"

	attached = "attached"
)

type marker struct {
	MarkerID string `json:"markerId"`
}

type plainNotes struct {
	Plain struct {
		Content string `json:"content"`
	} `json:"plain"`
}

// decodeTopic turns one topic object into a node. Unknown keys, the
// non-attached children kinds and rich notes are kept in Extra.
func decodeTopic(raw json.RawMessage) (*mindmap.Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode topic: %w", err)
	}
	n := &mindmap.Node{}
	if err := unmarshalOptional(fields, keyID, &n.ID); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(fields, keyTitle, &n.Title); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(fields, keyStructure, &n.Structure); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(fields, keyLabels, &n.Labels); err != nil {
		return nil, err
	}
	delete(fields, keyClass)

	if v, ok := fields[keyMarkers]; ok {
		var ms []marker
		if err := json.Unmarshal(v, &ms); err != nil {
			return nil, fmt.Errorf("decode topic %q markers: %w", n.Title, err)
		}
		for _, m := range ms {
			n.Markers = append(n.Markers, mindmap.Marker(m.MarkerID))
		}
		delete(fields, keyMarkers)
	}

	if v, ok := fields[keyNotes]; ok {
		var pn plainNotes
		if err := json.Unmarshal(v, &pn); err == nil {
			n.Notes = pn.Plain.Content
		}
		// The raw object stays in fields so html notes survive as long as
		// the plain text is not edited.
	}

	if v, ok := fields[keyChildren]; ok {
		var kinds map[string]json.RawMessage
		if err := json.Unmarshal(v, &kinds); err != nil {
			return nil, fmt.Errorf("decode topic %q children: %w", n.Title, err)
		}
		if a, ok := kinds[attached]; ok {
			var list []json.RawMessage
			if err := json.Unmarshal(a, &list); err != nil {
				return nil, fmt.Errorf("decode topic %q children: %w", n.Title, err)
			}
			for _, c := range list {
				child, err := decodeTopic(c)
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, child)
			}
			delete(kinds, attached)
		}
		delete(fields, keyChildren)
		if len(kinds) > 0 {
			rest, err := json.Marshal(kinds)
			if err != nil {
				return nil, err
			}
			fields[keyChildren] = rest
		}
	}

	if len(fields) > 0 {
		n.Extra = fields
	}
	return n, nil
}

// encodeTopic is the inverse of decodeTopic. Nodes without an ID get a
// fresh one, which is written back so the next save is stable.
func encodeTopic(n *mindmap.Node) (json.RawMessage, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	out := make(map[string]any, len(n.Extra)+8)
	for k, v := range n.Extra {
		out[k] = v
	}
	out[keyID] = n.ID
	out[keyClass] = "topic"
	out[keyTitle] = n.Title
	if n.Structure != "" {
		out[keyStructure] = n.Structure
	}
	if len(n.Labels) > 0 {
		out[keyLabels] = n.Labels
	}
	if len(n.Markers) > 0 {
		ms := make([]marker, len(n.Markers))
		for i, m := range n.Markers {
			ms[i] = marker{MarkerID: string(m)}
		}
		out[keyMarkers] = ms
	}

	// Notes without plain text, such as html-only notes, are left alone
	// while Notes stays empty.
	switch prev := plainContent(n.Extra[keyNotes]); {
	case n.Notes == "" && prev != "":
		delete(out, keyNotes)
	case n.Notes != "" && n.Notes != prev:
		var pn plainNotes
		pn.Plain.Content = n.Notes
		out[keyNotes] = pn
	}

	kinds := map[string]json.RawMessage{}
	if v, ok := n.Extra[keyChildren]; ok {
		if err := json.Unmarshal(v, &kinds); err != nil {
			return nil, fmt.Errorf("encode topic %q children: %w", n.Title, err)
		}
	}
	if len(n.Children) > 0 {
		list := make([]json.RawMessage, 0, len(n.Children))
		for _, c := range n.Children {
			raw, err := encodeTopic(c)
			if err != nil {
				return nil, err
			}
			list = append(list, raw)
		}
		a, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		kinds[attached] = a
	}
	if len(kinds) > 0 {
		out[keyChildren] = kinds
	} else {
		delete(out, keyChildren)
	}

	return json.Marshal(out)
}

func plainContent(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var pn plainNotes
	if err := json.Unmarshal(raw, &pn); err != nil {
		return ""
	}
	return pn.Plain.Content
}

func unmarshalOptional(fields map[string]json.RawMessage, key string, dst any) error {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("decode topic %s: %w", key, err)
	}
	delete(fields, key)
	return nil
}
