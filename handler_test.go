package winsvc

import "testing"

// TestResultMapping tests the handler result to wire code mapping against
// the controller's documented convention: 0 only ever means handled, never
// "not implemented"
func TestResultMapping(t *testing.T) {
	tests := []struct {
		name   string
		result HandlerResult
		want   uint32
	}{
		{name: "ok is NO_ERROR", result: ResultOK, want: 0},
		{name: "not handled is ERROR_CALL_NOT_IMPLEMENTED", result: ResultNotHandled, want: 120},
		{name: "custom error passes through", result: ResultError(5), want: 5},
		{name: "custom access denied", result: ResultError(0x80070005 & 0xFFFF), want: 5},
		{name: "zero custom error is coerced to an error code", result: ResultError(0), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resultToWire(tt.result); got != tt.want {
				t.Errorf("resultToWire() = %d, want %d", got, tt.want)
			}
		})
	}

	// The named results must stay distinct on the wire
	if resultToWire(ResultOK) == resultToWire(ResultNotHandled) {
		t.Error("ResultOK and ResultNotHandled collide on the wire")
	}
	if resultToWire(ResultError(0)) == resultToWire(ResultOK) {
		t.Error("ResultError(0) collides with ResultOK on the wire")
	}
}

// TestHandlerMutatesCapturedState tests that a handler closure can carry
// state across invocations, as the serialized callback contract allows
func TestHandlerMutatesCapturedState(t *testing.T) {
	var seen []ControlCode
	h := Handler(func(ev ControlEvent) HandlerResult {
		seen = append(seen, ev.Code)
		if ev.Code == ControlStop {
			return ResultOK
		}
		return ResultNotHandled
	})

	for _, code := range []uint32{uint32(ControlInterrogate), uint32(ControlPause), uint32(ControlStop)} {
		h(DecodeControl(code, 0, nil))
	}

	want := []ControlCode{ControlInterrogate, ControlPause, ControlStop}
	if len(seen) != len(want) {
		t.Fatalf("handler saw %d events, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
