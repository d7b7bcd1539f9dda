package lineproto

import "strings"

// SetItemTagKey is the tag key used by JoinTags for a plain set item
// name.
const SetItemTagKey = "SetItem"

// HealthCheckNameKey is the tag key holding a health check's name.
const HealthCheckNameKey = "name"

// Item is the parsed form of a set item label.
type Item struct {
	// Name is the display name taken from the first segment of the
	// label, or empty when the label only contains tags.
	Name string
	Tags []Tag
}

// SplitUnescaped splits s on every occurrence of sep that is not
// preceded by a backslash. Escape sequences are left in the segments.
func SplitUnescaped(s string, sep byte) []string {
	var (
		out   []string
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// cutUnescaped splits s around the first unescaped sep.
func cutUnescaped(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// unescapeItem removes the backslash from escaped commas and equals
// signs in a label segment.
func unescapeItem(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == ',' || s[i+1] == '=') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func itemSegments(label string) []string {
	parts := SplitUnescaped(label, ',')
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func segmentTag(segment string) (Tag, bool) {
	key, value, ok := cutUnescaped(segment, '=')
	if !ok {
		return Tag{}, false
	}
	return NewTag(strings.TrimSpace(unescapeItem(key)), strings.TrimSpace(unescapeItem(value)))
}

// ParseItem parses a set item label of the form
// "name,key=value,key=value". When the first segment has no unescaped
// equals sign it becomes the item name; every other segment that
// splits into a non-empty key and value becomes a tag. Malformed
// segments are ignored.
func ParseItem(label string) Item {
	var item Item

	segments := itemSegments(label)
	if len(segments) == 0 {
		return item
	}

	if _, _, isTag := cutUnescaped(segments[0], '='); !isTag {
		item.Name = unescapeItem(segments[0])
		segments = segments[1:]
	}

	for _, seg := range segments {
		if t, ok := segmentTag(seg); ok {
			item.Tags = append(item.Tags, t)
		}
	}

	return item
}

// LowerAndReplaceSpaces lowercases s and replaces spaces with
// underscores.
func LowerAndReplaceSpaces(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// HealthCheckTags derives tags from a health check name. The first
// segment names the check: a "name=" prefix is stripped (in any case)
// and otherwise the entire segment is used. The name and the values of
// any further key=value segments are lowercased with spaces replaced
// by underscores.
func HealthCheckTags(label string) []Tag {
	segments := itemSegments(label)
	if len(segments) == 0 {
		return nil
	}

	var out []Tag
	first := segments[0]
	if key, value, ok := cutUnescaped(first, '='); ok && strings.EqualFold(strings.TrimSpace(key), HealthCheckNameKey) {
		first = value
	}
	if t, ok := NewTag(HealthCheckNameKey, LowerAndReplaceSpaces(unescapeItem(first))); ok {
		out = append(out, t)
	}

	for _, seg := range segments[1:] {
		if t, ok := segmentTag(seg); ok {
			t.Value = LowerAndReplaceSpaces(t.Value)
			out = append(out, t)
		}
	}

	return out
}

// JoinTags merges tag sources in order. A plain item name contributes
// a SetItem tag first; an item name made of key=value pairs
// contributes its parsed tags instead. Each following source may
// overwrite an earlier key while keeping the position of its first
// occurrence. Tags with blank values are skipped and never overwrite
// an earlier value.
func JoinTags(itemName string, sources ...[]Tag) []Tag {
	all := make([][]Tag, 0, len(sources)+1)
	if strings.TrimSpace(itemName) != "" {
		item := ParseItem(itemName)
		if len(item.Tags) > 0 {
			all = append(all, item.Tags)
		} else {
			all = append(all, []Tag{{Key: SetItemTagKey, Value: item.Name}})
		}
	}
	return mergeTags(append(all, sources...)...)
}
