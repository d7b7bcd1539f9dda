package convert

import (
	"sort"
	"strings"

	"github.com/mongodb/lineproto"
	"github.com/mongodb/lineproto/metrics"
)

// Field key suffixes of set item fields. Per-item fields are prefixed
// with the item's name and the aggregated fields with itemPrefix.
const (
	countSuffix          = "Count"
	percentSuffix        = "Percent"
	meanRateSuffix       = "Mean Rate"
	oneMinRateSuffix     = "1 Min Rate"
	fiveMinRateSuffix    = "5 Min Rate"
	fifteenMinRateSuffix = "15 Min Rate"

	itemPrefix = "Item"
)

func itemKey(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "_" + suffix
}

// setItem is the intermediate form of one labeled sub-entry of a
// counter or meter.
type setItem struct {
	name    string
	tags    []lineproto.Tag
	id      string
	count   int64
	percent float64
	rates   [4]float64
	fields  []lineproto.Field
}

func newSetItem(label string) *setItem {
	parsed := lineproto.ParseItem(label)
	return &setItem{
		name: parsed.Name,
		tags: parsed.Tags,
		id:   tagIdentifier(parsed.Tags),
	}
}

func (s *setItem) tagged() bool { return len(s.tags) > 0 }

// tagIdentifier builds the canonical form of a tag set: the pairs in
// key order, rendered and joined with commas.
func tagIdentifier(tags []lineproto.Tag) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := append([]lineproto.Tag(nil), tags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Key == sorted[j].Key {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].Key < sorted[j].Key
	})

	parts := make([]string, len(sorted))
	for idx, t := range sorted {
		parts[idx] = t.LineProtocol()
	}
	return strings.Join(parts, ",")
}

// tagGroup accumulates the set items sharing one tag identifier.
type tagGroup struct {
	count   int64
	percent float64
	rates   [4]float64
	names   map[string]struct{}
}

func groupSetItems(items []*setItem) map[string]*tagGroup {
	groups := make(map[string]*tagGroup, len(items))
	for _, item := range items {
		g, ok := groups[item.id]
		if !ok {
			g = &tagGroup{names: map[string]struct{}{}}
			groups[item.id] = g
		}
		g.count += item.count
		g.percent += item.percent
		for idx := range g.rates {
			g.rates[idx] += item.rates[idx]
		}
		g.names[item.name] = struct{}{}
	}
	return groups
}

// emitTotals reports whether the un-split totals record is produced.
// It is omitted only when every item carries tags and all of them
// collapse into a single tag group.
func emitTotals(items []*setItem, groups map[string]*tagGroup) bool {
	if len(items) == 0 || len(groups) > 1 {
		return true
	}
	for _, item := range items {
		if !item.tagged() {
			return true
		}
	}
	return false
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

func rateFields(prefix string, m metrics.MeterValue) []lineproto.Field {
	return []lineproto.Field{
		lineproto.IntField(itemKey(prefix, countSuffix), m.Count),
		lineproto.FloatField(itemKey(prefix, meanRateSuffix), m.MeanRate),
		lineproto.FloatField(itemKey(prefix, oneMinRateSuffix), m.OneMinuteRate),
		lineproto.FloatField(itemKey(prefix, fiveMinRateSuffix), m.FiveMinuteRate),
		lineproto.FloatField(itemKey(prefix, fifteenMinRateSuffix), m.FifteenMinuteRate),
	}
}

// Counter produces one record per set item followed by a totals record
// with the grand total Count. Item records carry the item's count and
// its share of the total. Records of tagged items also carry the
// summed count of every item sharing their tag set.
func Counter(c Cycle, name string, tags []lineproto.Tag, value metrics.CounterValue) ([]*lineproto.Record, error) {
	items := make([]*setItem, 0, len(value.Items))
	for _, i := range value.Items {
		item := newSetItem(i.Item)
		item.count = i.Count
		item.percent = percent(i.Count, value.Count)
		item.fields = []lineproto.Field{
			lineproto.IntField(itemKey(item.name, countSuffix), item.count),
			lineproto.FloatField(itemKey(item.name, percentSuffix), item.percent),
		}
		items = append(items, item)
	}

	groups := groupSetItems(items)
	out := make([]*lineproto.Record, 0, len(items)+1)
	for _, item := range items {
		fields := item.fields
		if item.tagged() {
			count := value.Count
			if len(items) > 1 {
				count = groups[item.id].count
			}
			fields = append(fields, lineproto.IntField(itemKey(itemPrefix, countSuffix), count))
		}

		rec, err := c.record(name, c.Timestamp, fields, tags, item.tags)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if emitTotals(items, groups) {
		rec, err := c.record(name, c.Timestamp, []lineproto.Field{lineproto.IntField(countSuffix, value.Count)}, tags)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, nil
}

// Meter produces records like Counter, adding the mean and windowed
// rates to every record. Tagged item records carry the rates of their
// tag group: the summed rates divided by the number of distinct item
// names in the group.
func Meter(c Cycle, name string, tags []lineproto.Tag, value metrics.MeterValue) ([]*lineproto.Record, error) {
	out, totals, err := meterItemRecords(c, name, tags, value)
	if err != nil {
		return nil, err
	}

	if totals {
		rec, err := c.record(name, c.Timestamp, rateFields("", value), tags)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, nil
}

// meterItemRecords converts the set items of a meter and reports
// whether the totals record should follow them.
func meterItemRecords(c Cycle, name string, tags []lineproto.Tag, value metrics.MeterValue) ([]*lineproto.Record, bool, error) {
	items := make([]*setItem, 0, len(value.Items))
	for _, i := range value.Items {
		item := newSetItem(i.Item)
		item.count = i.Value.Count
		item.percent = percent(i.Value.Count, value.Count)
		item.rates = [4]float64{i.Value.MeanRate, i.Value.OneMinuteRate, i.Value.FiveMinuteRate, i.Value.FifteenMinuteRate}
		item.fields = []lineproto.Field{
			lineproto.IntField(itemKey(item.name, countSuffix), item.count),
			lineproto.FloatField(itemKey(item.name, percentSuffix), item.percent),
			lineproto.FloatField(itemKey(item.name, meanRateSuffix), item.rates[0]),
			lineproto.FloatField(itemKey(item.name, oneMinRateSuffix), item.rates[1]),
			lineproto.FloatField(itemKey(item.name, fiveMinRateSuffix), item.rates[2]),
			lineproto.FloatField(itemKey(item.name, fifteenMinRateSuffix), item.rates[3]),
		}
		items = append(items, item)
	}

	groups := groupSetItems(items)
	out := make([]*lineproto.Record, 0, len(items))
	for _, item := range items {
		fields := item.fields
		if item.tagged() {
			fields = append(fields, groupedRateFields(item, items, groups, value)...)
		}

		rec, err := c.record(name, c.Timestamp, fields, tags, item.tags)
		if err != nil {
			return nil, false, err
		}
		out = append(out, rec)
	}
	return out, emitTotals(items, groups), nil
}

func groupedRateFields(item *setItem, items []*setItem, groups map[string]*tagGroup, value metrics.MeterValue) []lineproto.Field {
	if len(items) == 1 {
		return []lineproto.Field{
			lineproto.IntField(itemKey(itemPrefix, countSuffix), value.Count),
			lineproto.FloatField(itemKey(itemPrefix, meanRateSuffix), value.MeanRate),
			lineproto.FloatField(itemKey(itemPrefix, oneMinRateSuffix), value.OneMinuteRate),
			lineproto.FloatField(itemKey(itemPrefix, fiveMinRateSuffix), value.FiveMinuteRate),
			lineproto.FloatField(itemKey(itemPrefix, fifteenMinRateSuffix), value.FifteenMinuteRate),
		}
	}

	g := groups[item.id]
	names := float64(len(g.names))
	return []lineproto.Field{
		lineproto.IntField(itemKey(itemPrefix, countSuffix), g.count),
		lineproto.FloatField(itemKey(itemPrefix, percentSuffix), g.percent),
		lineproto.FloatField(itemKey(itemPrefix, meanRateSuffix), g.rates[0]/names),
		lineproto.FloatField(itemKey(itemPrefix, oneMinRateSuffix), g.rates[1]/names),
		lineproto.FloatField(itemKey(itemPrefix, fiveMinRateSuffix), g.rates[2]/names),
		lineproto.FloatField(itemKey(itemPrefix, fifteenMinRateSuffix), g.rates[3]/names),
	}
}
