package xmlparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// node is a generic XML element decoded to a map: child elements become
// map entries (a []node when repeated), and the node's own text
// lives under the empty-string key. This mirrors the teacher's
// decoder.Decode-to-map approach but keeps everything in the standard
// library's encoding/xml instead of a third-party unmarshaler, since the
// retailer feeds have no fixed schema to hang struct tags off of.
type node map[string]interface{}

func decodeXML(content []byte) (node, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlparser: reading root token: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeElement(dec, &start)
		}
	}
}

func decodeElement(dec *xml.Decoder, start *xml.StartElement) (node, error) {
	n := node{}
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlparser: reading element %s: %w", start.Name.Local, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, &t)
			if err != nil {
				return nil, err
			}
			addChild(n, localName(t.Name), child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
				n[""] = trimmed
			}
			return n, nil
		}
	}
}

func addChild(n node, name string, child node) {
	existing, ok := n[name]
	if !ok {
		n[name] = child
		return
	}

	switch v := existing.(type) {
	case []node:
		n[name] = append(v, child)
	case node:
		n[name] = []node{v, child}
	default:
		n[name] = []node{child}
	}
}

func localName(n xml.Name) string {
	return n.Local
}

// children returns the list form of a node's direct child under name,
// regardless of whether the document had one occurrence or many.
func (n node) children(name string) []node {
	v, ok := n[name]
	if !ok {
		return nil
	}
	switch c := v.(type) {
	case []node:
		return c
	case node:
		return []node{c}
	default:
		return nil
	}
}

// text returns the node's own character data, or "" if it has none.
func (n node) text() string {
	if v, ok := n[""]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// field returns the trimmed text of the first direct child matching any
// of candidates, in order, skipping children whose text is empty. This is
// the schema-tolerance primitive: callers pass English and Hebrew tag
// name variants together and take whichever the document actually used.
func (n node) field(candidates ...string) string {
	for _, name := range candidates {
		for _, child := range n.children(name) {
			if t := strings.TrimSpace(child.text()); t != "" {
				return t
			}
		}
	}
	return ""
}

// find returns all matches of a dotted path of candidate-name groups,
// e.g. find([]string{"Items","items"}, []string{"Item","item"}) walks
// into whichever of "Items"/"items" is present, then collects every
// "Item"/"item" child underneath it.
func (n node) find(path ...[]string) []node {
	current := []node{n}
	for _, candidates := range path {
		var next []node
		for _, cur := range current {
			for _, name := range candidates {
				next = append(next, cur.children(name)...)
			}
		}
		current = next
	}
	return current
}
