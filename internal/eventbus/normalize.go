package eventbus

import (
	"github.com/spf13/cast"
)

// Normalize turns any emitted detail into a DataChanged payload.
// Strings become the reason, unsupported values an empty-scope event.
func Normalize(detail any) DataChanged {
	switch d := detail.(type) {
	case DataChanged:
		return d
	case *DataChanged:
		if d == nil {
			return DataChanged{}
		}
		return *d
	case string:
		return DataChanged{Reason: d}
	case map[string]any:
		return fromMap(d)
	case map[string]string:
		m := make(map[string]any, len(d))
		for k, v := range d {
			m[k] = v
		}
		return fromMap(m)
	default:
		return DataChanged{}
	}
}

func fromMap(m map[string]any) DataChanged {
	return DataChanged{
		Scope:     cast.ToString(m["scope"]),
		Source:    cast.ToString(m["source"]),
		Reason:    cast.ToString(m["reason"]),
		Action:    cast.ToString(m["action"]),
		Count:     cast.ToInt(m["count"]),
		BatchSize: cast.ToInt(m["batchSize"]),
	}
}
