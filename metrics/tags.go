package metrics

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"
)

// Tag is a key/value dimension attached to a metric.
type Tag struct {
	Key   string `bson:"key" json:"key" yaml:"key"`
	Value string `bson:"value" json:"value" yaml:"value"`
}

// Tags is an ordered list of tags. In documents and configuration
// files tags are written as a mapping of keys to values; the order of
// the mapping is preserved.
type Tags []Tag

// MakeTags builds tags from alternating key and value arguments.
func MakeTags(pairs ...string) Tags {
	out := make(Tags, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Tag{Key: pairs[i], Value: pairs[i+1]})
	}
	return out
}

// ParseTag parses a "key=value" string.
func ParseTag(in string) (Tag, error) {
	key, value, ok := strings.Cut(in, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return Tag{}, errors.Errorf("tag '%s' is not a key=value pair", in)
	}
	return Tag{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}, nil
}

// Get returns the value of the last tag with the given key.
func (ts Tags) Get(key string) (string, bool) {
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].Key == key {
			return ts[i].Value, true
		}
	}
	return "", false
}

func (ts Tags) MarshalBSON() ([]byte, error) {
	doc := make(bson.D, 0, len(ts))
	for _, t := range ts {
		doc = append(doc, bson.E{Key: t.Key, Value: t.Value})
	}
	return bson.Marshal(doc)
}

func (ts *Tags) UnmarshalBSON(in []byte) error {
	var doc bson.D
	if err := bson.Unmarshal(in, &doc); err != nil {
		return errors.Wrap(err, "problem parsing tag document")
	}

	out := make(Tags, 0, len(doc))
	for _, elem := range doc {
		switch v := elem.Value.(type) {
		case string:
			out = append(out, Tag{Key: elem.Key, Value: v})
		case nil:
			out = append(out, Tag{Key: elem.Key})
		default:
			out = append(out, Tag{Key: elem.Key, Value: fmt.Sprint(v)})
		}
	}
	*ts = out
	return nil
}

func (ts *Tags) UnmarshalYAML(node *yaml.Node) error {
	out := Tags{}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = append(out, Tag{Key: node.Content[i].Value, Value: node.Content[i+1].Value})
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			t, err := ParseTag(item.Value)
			if err != nil {
				return errors.Wrapf(err, "problem parsing tag on line %d", item.Line)
			}
			out = append(out, t)
		}
	default:
		return errors.Errorf("tags on line %d must be a mapping or a list of key=value strings", node.Line)
	}
	*ts = out
	return nil
}
