package compiler

import (
	"fmt"
	"strings"

	"gomojo/pkg/diag"
	"gomojo/pkg/memory"
	"gomojo/pkg/types"
)

// Variable is a declared name. Arrays occupy Upper-Lower contiguous slots from Addr.
type Variable struct {
	Name  string
	Type  types.Type
	Addr  memory.Address
	Scope string

	Array bool
	Lower int
	Upper int
}

type Param struct {
	Name string
	Type types.Type
	Addr memory.Address
}

// Function is the directory entry of a function, main, or the global scope.
type Function struct {
	ID         int
	Name       string
	Return     types.Type
	ReturnAddr memory.Address // global slot written by return; zero for void
	Entry      int            // first quadruple of the body, -1 until known
	Params     []Param

	Locals memory.Counts // sizes the activation record
	Temps  memory.Counts

	vars   map[string]*Variable
	order  []*Variable
	arrays []*Variable
}

func (f *Function) Variable(name string) (*Variable, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// Variables are returned in declaration order.
func (f *Function) Variables() []*Variable { return f.order }

// Arrays is the dimensioned-variable table in declaration order.
func (f *Function) Arrays() []*Variable { return f.arrays }

func (f *Function) ParamTypes() []types.Type {
	r := make([]types.Type, len(f.Params))
	for i, p := range f.Params {
		r[i] = p.Type
	}
	return r
}

// FuncDir is the function directory. The global scope is registered as a
// void function named after the program; its variables are globals.
type FuncDir struct {
	alloc *memory.Allocator

	global string
	funcs  map[string]*Function
	order  []*Function
}

func NewFuncDir(alloc *memory.Allocator) *FuncDir {
	return &FuncDir{
		alloc: alloc,
		funcs: make(map[string]*Function),
	}
}

// DeclareGlobalScope registers the program scope. It must be called first.
func (d *FuncDir) DeclareGlobalScope(name string) (*Function, error) {
	f, err := d.add(name, types.Void)
	if err != nil {
		return nil, err
	}

	d.global = name

	return f, nil
}

func (d *FuncDir) GlobalScope() string { return d.global }

// DeclareFunction registers a function and starts its local numbering.
// Non-void functions get a global slot that return writes to.
func (d *FuncDir) DeclareFunction(name string, ret types.Type) (*Function, error) {
	f, err := d.add(name, ret)
	if err != nil {
		return nil, err
	}

	if ret != types.Void {
		f.ReturnAddr, err = d.alloc.Global(ret)
		if err != nil {
			return nil, err
		}
	}

	d.alloc.ResetLocals()
	d.alloc.ResetTemporaries()

	return f, nil
}

func (d *FuncDir) add(name string, ret types.Type) (*Function, error) {
	if _, ok := d.funcs[name]; ok {
		return nil, diag.New(diag.ErrDeclaration, 0, "function %q already declared", name)
	}

	f := &Function{
		ID:     len(d.order),
		Name:   name,
		Return: ret,
		Entry:  -1,
		vars:   make(map[string]*Variable),
	}

	d.funcs[name] = f
	d.order = append(d.order, f)

	return f, nil
}

func (d *FuncDir) scope(name string) (*Function, error) {
	f, ok := d.funcs[name]
	if !ok {
		return nil, diag.New(diag.ErrDeclaration, 0, "undeclared function %q", name)
	}

	return f, nil
}

// DeclareVariable adds name to scope. Globals are allocated in the global
// class, everything else in the local class of the function.
func (d *FuncDir) DeclareVariable(scope string, t types.Type, name string) (*Variable, error) {
	return d.declare(scope, t, name, 1, false)
}

// DeclareArray reserves length contiguous slots with bounds [0, length).
func (d *FuncDir) DeclareArray(scope string, t types.Type, name string, length int) (*Variable, error) {
	if length <= 0 {
		return nil, diag.New(diag.ErrDeclaration, 0, "array %q must have a positive size, got %d", name, length)
	}

	return d.declare(scope, t, name, length, true)
}

func (d *FuncDir) declare(scope string, t types.Type, name string, n int, array bool) (*Variable, error) {
	f, err := d.scope(scope)
	if err != nil {
		return nil, err
	}

	if _, ok := f.vars[name]; ok {
		return nil, diag.New(diag.ErrDeclaration, 0, "variable %q already declared in %v", name, scope)
	}

	class := memory.Local
	if scope == d.global {
		class = memory.Global
	}

	var addr memory.Address

	switch {
	case array:
		addr, err = d.alloc.Sequential(class, t, n)
	case class == memory.Global:
		addr, err = d.alloc.Global(t)
	default:
		addr, err = d.alloc.Local(t)
	}
	if err != nil {
		return nil, err
	}

	if class == memory.Local {
		f.Locals[t] += n
	}

	v := &Variable{
		Name:  name,
		Type:  t,
		Addr:  addr,
		Scope: scope,
	}

	if array {
		v.Array = true
		v.Upper = n
		f.arrays = append(f.arrays, v)
	}

	f.vars[name] = v
	f.order = append(f.order, v)

	return v, nil
}

// Lookup resolves name in scope, then in the global scope.
func (d *FuncDir) Lookup(scope, name string) (*Variable, bool) {
	if f, ok := d.funcs[scope]; ok {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}

	if g, ok := d.funcs[d.global]; ok {
		v, ok := g.vars[name]
		return v, ok
	}

	return nil, false
}

// DeclareParameters declares the parameters as locals of scope, in order.
func (d *FuncDir) DeclareParameters(scope string, ts []types.Type, names []string) error {
	if len(ts) != len(names) {
		return diag.New(diag.ErrDeclaration, 0, "%v: %d parameter types for %d names", scope, len(ts), len(names))
	}

	f, err := d.scope(scope)
	if err != nil {
		return err
	}

	for i, name := range names {
		v, err := d.DeclareVariable(scope, ts[i], name)
		if err != nil {
			return err
		}

		f.Params = append(f.Params, Param{Name: name, Type: v.Type, Addr: v.Addr})
	}

	return nil
}

func (d *FuncDir) RecordEntry(scope string, index int) error {
	f, err := d.scope(scope)
	if err != nil {
		return err
	}

	f.Entry = index

	return nil
}

// AddTemporary counts one more temporary of type t used by scope.
func (d *FuncDir) AddTemporary(scope string, t types.Type) error {
	f, err := d.scope(scope)
	if err != nil {
		return err
	}

	f.Temps[t]++

	return nil
}

func (d *FuncDir) Function(name string) (*Function, bool) {
	f, ok := d.funcs[name]
	return f, ok
}

func (d *FuncDir) ByID(id int) (*Function, bool) {
	if id < 0 || id >= len(d.order) {
		return nil, false
	}

	return d.order[id], true
}

// Functions are returned in declaration order, the global scope first.
func (d *FuncDir) Functions() []*Function { return d.order }

// String returns a deterministically ordered dump of the directory.
func (d *FuncDir) String() string {
	var sb strings.Builder

	for _, f := range d.order {
		fmt.Fprintf(&sb, "%s %s", f.Return, f.Name)
		if f.Return != types.Void && f.Name != d.global {
			fmt.Fprintf(&sb, " -> %d", f.ReturnAddr)
		}
		fmt.Fprintf(&sb, "  entry %d  locals [%v]  temps [%v]\n", f.Entry, f.Locals, f.Temps)

		for _, p := range f.Params {
			fmt.Fprintf(&sb, "  param %-16s %-6s %d\n", p.Name, p.Type, p.Addr)
		}

		for _, v := range f.order {
			if v.Array {
				fmt.Fprintf(&sb, "  var   %-16s %-6s %d [%d:%d]\n", v.Name, v.Type, v.Addr, v.Lower, v.Upper)
				continue
			}

			fmt.Fprintf(&sb, "  var   %-16s %-6s %d\n", v.Name, v.Type, v.Addr)
		}
	}

	return sb.String()
}
