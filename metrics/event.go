package metrics

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// EventPoint is one named value recorded with an event.
type EventPoint struct {
	Name  string
	Value interface{}
}

// EventFields is the ordered key/value payload of an event. Values are
// restricted to go native numbers, booleans, strings and times.
type EventFields []EventPoint

// MakeEventFields creates an empty payload with the given capacity.
func MakeEventFields(size int) EventFields { return make(EventFields, 0, size) }

// Add appends a value to the payload. Only accepts go native number
// types, booleans, strings and timestamps.
func (ps *EventFields) Add(key string, value interface{}) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64, float32, float64, bool, string, time.Time:
		*ps = append(*ps, EventPoint{Name: key, Value: v})
		return nil
	case bson.DateTime:
		*ps = append(*ps, EventPoint{Name: key, Value: v.Time().UTC()})
		return nil
	default:
		return errors.Errorf("type '%T' for key %s is not supported", value, key)
	}
}

func (ps EventFields) Len() int           { return len(ps) }
func (ps EventFields) Less(i, j int) bool { return ps[i].Name < ps[j].Name }
func (ps EventFields) Swap(i, j int)      { ps[i], ps[j] = ps[j], ps[i] }
func (ps EventFields) Sort()              { sort.Stable(ps) }

func (ps EventFields) MarshalBSON() ([]byte, error) {
	doc := make(bson.D, 0, len(ps))
	for _, elem := range ps {
		doc = append(doc, bson.E{Key: elem.Name, Value: elem.Value})
	}
	return bson.Marshal(doc)
}

func (ps *EventFields) UnmarshalBSON(in []byte) error {
	var doc bson.D
	if err := bson.Unmarshal(in, &doc); err != nil {
		return errors.Wrap(err, "problem parsing event document")
	}

	out := MakeEventFields(len(doc))
	for _, elem := range doc {
		if err := out.Add(elem.Key, elem.Value); err != nil {
			return errors.Wrap(err, "problem reading event field")
		}
	}
	*ps = out
	return nil
}
