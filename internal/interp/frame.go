package interp

import "mx/internal/comptime"

// frame is one function activation. Blocks push scopes; lookups walk them
// innermost first.
type frame struct {
	fn     string
	scopes []map[string]comptime.Value
}

func newFrame(fn string) *frame {
	return &frame{fn: fn, scopes: []map[string]comptime.Value{{}}}
}

func (f *frame) push() { f.scopes = append(f.scopes, map[string]comptime.Value{}) }
func (f *frame) pop()  { f.scopes = f.scopes[:len(f.scopes)-1] }

func (f *frame) declare(name string, v comptime.Value) {
	f.scopes[len(f.scopes)-1][name] = v
}

func (f *frame) get(name string) (comptime.Value, bool) {
	if f == nil {
		return comptime.Value{}, false
	}
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i][name]; ok {
			return v, true
		}
	}
	return comptime.Value{}, false
}

func (f *frame) set(name string, v comptime.Value) bool {
	if f == nil {
		return false
	}
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if _, ok := f.scopes[i][name]; ok {
			f.scopes[i][name] = v
			return true
		}
	}
	return false
}
