package script

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestBridge_RoundTrip(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := rt.Bridge()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"scalars", []any{int64(1), "two", true}, []any{int64(1), "two", true}},
		{"nil element", []any{int64(1), nil, int64(3)}, []any{int64(1), nil, int64(3)}},
		{"strings", []string{"a", "", "c"}, []any{"a", "", "c"}},
		{"nested", map[string]any{"xs": []any{nil, 2.5}}, map[string]any{"xs": []any{nil, 2.5}}},
		{"float", 1.5, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.ToGoValue(b.ToLuaValue(tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBridge_SliceKeepsIndices(t *testing.T) {
	rt, _ := newTestRuntime(t)

	tbl, ok := rt.Bridge().ToLuaValue([]any{1, nil, 3}).(*lua.LTable)
	if !ok {
		t.Fatal("expected a table")
	}
	if got := tbl.RawGetInt(2); got != lua.LNil {
		t.Errorf("[2] = %v, want nil", got)
	}
	if got := tbl.RawGetInt(3); got != lua.LNumber(3) {
		t.Errorf("[3] = %v, want 3", got)
	}
}

func TestBridge_SparseTableBecomesMap(t *testing.T) {
	rt, _ := newTestRuntime(t)

	if err := rt.DoString(`t = {[1] = "a", [10] = "b"}`); err != nil {
		t.Fatal(err)
	}
	got := rt.Bridge().ToGoValue(rt.GetGlobal("t"))
	want := map[string]any{"1": "a", "10": "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToGoValue = %#v, want %#v", got, want)
	}
}
