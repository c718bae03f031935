package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type member struct {
	Key   string
	Value json.RawMessage
}

// orderedObject returns the members of a JSON object in document order
func orderedObject(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotAnObject
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		members = append(members, member{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return members, nil
}

// yamlToJSON re-encodes a YAML document as JSON keeping mapping order
func yamlToJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, ErrEmptyDocument
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, &root); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, node.Content[0])

	case yaml.AliasNode:
		return writeNode(buf, node.Alias)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			// integer keys such as response codes become strings
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		return writeScalar(buf, node)
	}

	return fmt.Errorf("unsupported yaml node kind %d at line %d", node.Kind, node.Line)
}

func writeScalar(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Tag {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!int", "!!float":
		if json.Valid([]byte(node.Value)) {
			buf.WriteString(node.Value)
			return nil
		}
		fallthrough
	case "!!bool":
		var value any
		if err := node.Decode(&value); err != nil {
			return err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			// .inf and .nan have no JSON form
			encoded = []byte(strconv.Quote(node.Value))
		}
		buf.Write(encoded)
		return nil
	}

	encoded, err := json.Marshal(node.Value)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}
