// Package env implements the variable environment: an immutable chain of
// bindings from names to their type and frame location.
package env

import "github.com/xplshn/gmini/pkg/types"

// VarEnv is one binding. Offsets are relative to the frame base pointer.
// A by-reference binding's slot holds the address of the variable.
type VarEnv struct {
	Name   string
	Type   *types.Type
	Offset int
	ByRef  bool
	Next   *VarEnv
}

// Extend returns a new environment with name bound in front of next.
func Extend(name string, typ *types.Type, offset int, byRef bool, next *VarEnv) *VarEnv {
	return &VarEnv{Name: name, Type: typ, Offset: offset, ByRef: byRef, Next: next}
}

// Find returns the innermost binding for name, or nil.
func Find(name string, env *VarEnv) *VarEnv {
	for ; env != nil; env = env.Next {
		if env.Name == name {
			return env
		}
	}
	return nil
}

func (v *VarEnv) GetType() *types.Type { return v.Type }
func (v *VarEnv) GetOffset() int       { return v.Offset }
func (v *VarEnv) IsByRef() bool        { return v.ByRef }

// Frame hands out stack slots for one function. Locals live below the
// base pointer and are reused once the scope that declared them closes.
type Frame struct {
	wordSize int
	live     int
	peak     int
}

func NewFrame(wordSize int) *Frame { return &Frame{wordSize: wordSize} }

// Param returns the offset of the i-th parameter, above the saved base
// pointer and return address.
func (f *Frame) Param(i int) int { return 2*f.wordSize + i*f.wordSize }

// Local reserves the next local slot.
func (f *Frame) Local() int {
	f.live++
	f.peak = max(f.peak, f.live)
	return -f.live * f.wordSize
}

func (f *Frame) Mark() int        { return f.live }
func (f *Frame) Release(mark int) { f.live = mark }

// Bytes is the space the prologue must reserve for locals.
func (f *Frame) Bytes() int { return f.peak * f.wordSize }
