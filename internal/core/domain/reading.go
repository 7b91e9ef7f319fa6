package domain

// EntityState is a raw host sensor snapshot: a state string plus its
// attribute map. Nil means the entity does not exist.
type EntityState struct {
	State      string
	Attributes map[string]any
}

// ReadStatus tags the outcome of a numeric sensor read. The host reports
// sensor trouble through state strings, not errors, so reads never fail
// with an error; callers switch on the tag instead.
type ReadStatus int

const (
	ReadOk ReadStatus = iota
	ReadMissing
	ReadUnavailable
	ReadInvalid
)

func (s ReadStatus) String() string {
	switch s {
	case ReadOk:
		return "ok"
	case ReadMissing:
		return "missing"
	case ReadUnavailable:
		return "unavailable"
	case ReadInvalid:
		return "invalid"
	}
	return "unknown"
}

// FloatReading is a tagged numeric sensor read. Value is meaningful only
// when Status is ReadOk; Raw carries the offending state string for
// ReadInvalid.
type FloatReading struct {
	EntityID string
	Status   ReadStatus
	Value    float64
	Raw      string
}

func (r FloatReading) OK() bool {
	return r.Status == ReadOk
}

func OkReading(entityID string, value float64) FloatReading {
	return FloatReading{EntityID: entityID, Status: ReadOk, Value: value}
}

func MissingReading(entityID string) FloatReading {
	return FloatReading{EntityID: entityID, Status: ReadMissing}
}

func UnavailableReading(entityID string) FloatReading {
	return FloatReading{EntityID: entityID, Status: ReadUnavailable}
}

func InvalidReading(entityID, raw string) FloatReading {
	return FloatReading{EntityID: entityID, Status: ReadInvalid, Raw: raw}
}
