package hal

import "testing"

func TestButtonPressRaisesEdgeInterrupt(t *testing.T) {
	m := NewGoMachine(GoMachineConfig{})
	b := newButtonPin("SW1", m)

	var edges int
	if err := b.OnEdge(func() { edges++ }); err != nil {
		t.Fatalf("OnEdge: %v", err)
	}
	if level, _ := b.Read(); !level {
		t.Fatal("released button must read high")
	}

	b.Press()
	b.Press()
	if level, _ := b.Read(); level {
		t.Fatal("pressed button must read low")
	}
	m.RestoreInterrupts(IntEnabled)
	if edges != 1 {
		t.Fatalf("edges = %d, want 1 (held button has no new edge)", edges)
	}

	b.Release()
	b.Press()
	m.RestoreInterrupts(IntEnabled)
	if edges != 2 || b.Presses() != 2 {
		t.Fatalf("edges = %d, presses = %d, want 2, 2", edges, b.Presses())
	}
}

func TestButtonRejectsOutput(t *testing.T) {
	b := newButtonPin("SW1", nil)
	if err := b.Configure(GPIOModeOutput, GPIOPullNone); err == nil {
		t.Fatal("Configure(output) should fail")
	}
	if err := b.Write(true); err == nil {
		t.Fatal("Write should fail")
	}
	if err := b.OnEdge(func() {}); err == nil {
		t.Fatal("OnEdge without interrupt controller should fail")
	}
}
