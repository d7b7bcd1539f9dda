package lineproto

import "strings"

// Tag is an indexed string dimension of a record.
type Tag struct {
	Key   string
	Value string
}

// NewTag constructs a tag, reporting false when either the key or the
// value is empty after trimming whitespace. Invalid tags are never
// rendered.
func NewTag(key, value string) (Tag, bool) {
	t := Tag{Key: key, Value: value}
	return t, !t.IsEmpty()
}

// IsEmpty reports whether the tag is missing a key or value.
func (t Tag) IsEmpty() bool {
	return strings.TrimSpace(t.Key) == "" || strings.TrimSpace(t.Value) == ""
}

// LineProtocol renders the tag as key=value with both sides escaped.
func (t Tag) LineProtocol() string {
	return EscapeKey(t.Key) + "=" + EscapeKey(t.Value)
}

func (t Tag) String() string { return t.LineProtocol() }

// TagsFromPairs builds tags from alternating key and value
// arguments. A trailing key without a value is ignored.
func TagsFromPairs(pairs ...string) []Tag {
	out := make([]Tag, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Tag{Key: pairs[i], Value: pairs[i+1]})
	}
	return out
}

// mergeTags performs a stable-order merge of the sources: a later tag
// overwrites the value of an earlier tag with the same key while the
// position of the first occurrence is kept. Tags with a blank key or
// value never take part in the merge.
func mergeTags(sources ...[]Tag) []Tag {
	var (
		merged []Tag
		index  = map[string]int{}
	)

	for _, src := range sources {
		for _, t := range src {
			if t.IsEmpty() {
				continue
			}
			if idx, ok := index[t.Key]; ok {
				merged[idx].Value = t.Value
				continue
			}
			index[t.Key] = len(merged)
			merged = append(merged, t)
		}
	}
	return merged
}
