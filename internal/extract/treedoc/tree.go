package treedoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// element is a parsed xml element, names are local names (namespace
// prefixes are dropped) since the documents mix several namespaces for the
// same logical fields.
type element struct {
	name     string
	text     strings.Builder
	children []*element
}

// Text returns the concatenated character data of the element and all of its descendants.
func (e *element) Text() string {
	return e.text.String()
}

// Find returns the first descendant (depth-first, document order) with the given local name.
func (e *element) Find(name string) *element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
		found := c.Find(name)
		if found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant with the given local name in document order.
func (e *element) FindAll(name string) []*element {
	var out []*element
	e.findAll(name, &out)
	return out
}

func (e *element) findAll(name string, out *[]*element) {
	for _, c := range e.children {
		if c.name == name {
			*out = append(*out, c)
		}
		c.findAll(name, out)
	}
}

// parse reads a whole xml document into a tree rooted at a synthetic
// element that holds the top-level elements as children.
func parse(document []byte) (*element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(document))
	decoder.Strict = false
	decoder.CharsetReader = charset.NewReaderLabel

	root := &element{}
	stack := []*element{root}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			for _, open := range stack[1:] {
				open.text.Write(t)
			}
		}
	}

	if len(root.children) == 0 {
		return nil, fmt.Errorf("decode xml: no elements")
	}
	return root, nil
}
