package vm

import (
	"encoding/json"
	"io"
	"os"

	"tlog.app/go/errors"

	"gomojo/pkg/memory"
)

// FrameState is the JSON view of one activation record.
type FrameState struct {
	Function string         `json:"function"`
	Return   int            `json:"return"`
	Record   *memory.Record `json:"record"`
}

// State is the JSON-serializable diagnostic snapshot of the machine.
type State struct {
	Program   string                  `json:"program"`
	IP        int                     `json:"ip"`
	Steps     int                     `json:"steps"`
	Halted    bool                    `json:"halted"`
	Error     string                  `json:"error,omitempty"`
	Depth     int                     `json:"depth"`
	Globals   *memory.Segment         `json:"globals"`
	Current   FrameState              `json:"current"`
	Pending   int                     `json:"pending"`
	Variables map[string]memory.Value `json:"variables,omitempty"`
}

// Snapshot captures the current state. Variables lists globals and the
// variables of the current function by name.
func (v *VM) Snapshot() State {
	cur := v.current()

	s := State{
		Program: v.prog.Name,
		IP:      v.IP,
		Steps:   v.Steps,
		Halted:  v.Halted,
		Depth:   len(v.frames),
		Globals: v.mem.Globals,
		Current: FrameState{
			Function: cur.fn.Name,
			Return:   cur.ret,
			Record:   cur.rec,
		},
		Pending:   len(v.pending),
		Variables: map[string]memory.Value{},
	}

	if v.Err != nil {
		s.Error = v.Err.Error()
	}

	for _, fn := range []string{v.prog.Global.Name, cur.fn.Name} {
		f, ok := v.prog.Dir.Function(fn)
		if !ok {
			continue
		}

		for _, x := range f.Variables() {
			if x.Array {
				continue
			}

			val, err := v.mem.Load(x.Addr, cur.rec)
			if err != nil {
				continue
			}

			s.Variables[x.Name] = val
		}
	}

	return s
}

// WriteSnapshot encodes Snapshot as indented JSON.
func (v *VM) WriteSnapshot(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v.Snapshot())
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	return nil
}

// SaveSnapshot writes the snapshot to filename.
func (v *VM) SaveSnapshot(filename string) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create")
	}

	defer func() {
		e := f.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close")
		}
	}()

	return v.WriteSnapshot(f)
}
