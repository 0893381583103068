package memory

import (
	"tlog.app/go/errors"

	"gomojo/pkg/types"
)

// Segment is the typed storage of one memory class.
type Segment struct {
	Ints    []int     `json:"ints,omitempty"`
	Floats  []float64 `json:"floats,omitempty"`
	Strings []string  `json:"strings,omitempty"`
	Bools   []bool    `json:"bools,omitempty"`
}

func NewSegment(c Counts) *Segment {
	return &Segment{
		Ints:    make([]int, c[types.Int]),
		Floats:  make([]float64, c[types.Float]),
		Strings: make([]string, c[types.String]),
		Bools:   make([]bool, c[types.Bool]),
	}
}

func (s *Segment) len(t types.Type) int {
	switch t {
	case types.Int:
		return len(s.Ints)
	case types.Float:
		return len(s.Floats)
	case types.String:
		return len(s.Strings)
	case types.Bool:
		return len(s.Bools)
	}

	return 0
}

func (s *Segment) Load(t types.Type, off int) (Value, error) {
	if off < 0 || off >= s.len(t) {
		return Value{}, errors.New("%v slot %d out of segment (size %d)", t, off, s.len(t))
	}

	switch t {
	case types.Int:
		return IntValue(s.Ints[off]), nil
	case types.Float:
		return FloatValue(s.Floats[off]), nil
	case types.String:
		return StringValue(s.Strings[off]), nil
	default:
		return BoolValue(s.Bools[off]), nil
	}
}

// Store writes v to slot off of type t, widening ints stored into floats.
func (s *Segment) Store(t types.Type, off int, v Value) error {
	if off < 0 || off >= s.len(t) {
		return errors.New("%v slot %d out of segment (size %d)", t, off, s.len(t))
	}

	v, err := v.Convert(t)
	if err != nil {
		return err
	}

	switch t {
	case types.Int:
		s.Ints[off] = v.I
	case types.Float:
		s.Floats[off] = v.F
	case types.String:
		s.Strings[off] = v.S
	default:
		s.Bools[off] = v.B
	}

	return nil
}

// Record is the storage of one activation: its locals and temporaries.
type Record struct {
	Locals *Segment `json:"locals"`
	Temps  *Segment `json:"temps"`
}

func NewRecord(locals, temps Counts) *Record {
	return &Record{
		Locals: NewSegment(locals),
		Temps:  NewSegment(temps),
	}
}

// Map resolves addresses to storage.
// Local and temporary addresses go through the given record.
type Map struct {
	Globals   *Segment `json:"globals"`
	Constants *Segment `json:"-"`
}

func NewMap(globals Counts, constants *Segment) *Map {
	return &Map{
		Globals:   NewSegment(globals),
		Constants: constants,
	}
}

func (m *Map) segment(a Address, r *Record) (*Segment, error) {
	if !a.Valid() {
		return nil, errors.New("address %d outside memory", int(a))
	}

	switch a.Class() {
	case Global:
		return m.Globals, nil
	case Constant:
		return m.Constants, nil
	}

	if r == nil {
		return nil, errors.New("%v address %d without activation record", a.Class(), int(a))
	}

	if a.Class() == Local {
		return r.Locals, nil
	}

	return r.Temps, nil
}

func (m *Map) Load(a Address, r *Record) (Value, error) {
	s, err := m.segment(a, r)
	if err != nil {
		return Value{}, err
	}

	v, err := s.Load(a.Type(), a.Offset())
	if err != nil {
		return Value{}, errors.Wrap(err, "load %d", int(a))
	}

	return v, nil
}

func (m *Map) Store(a Address, v Value, r *Record) error {
	if a.Valid() && a.Class() == Constant {
		return errors.New("store to constant address %d", int(a))
	}

	s, err := m.segment(a, r)
	if err != nil {
		return err
	}

	err = s.Store(a.Type(), a.Offset(), v)
	if err != nil {
		return errors.Wrap(err, "store %d", int(a))
	}

	return nil
}
