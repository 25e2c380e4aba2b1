package tunable

import "testing"

func TestCreateClampsInitialValue(t *testing.T) {
	var ts Tunables
	tu := ts.Create("bias-left", 120, 0, 100)
	if tu.Get() != 100 {
		t.Fatalf("initial value = %d, expected clamp to 100", tu.Get())
	}
}

func TestAddClamps(t *testing.T) {
	var ts Tunables
	tu := ts.Create("bias-right", 2, 0, 100)

	if v := tu.Add(3); v != 5 {
		t.Fatalf("Add(3) = %d, expected 5", v)
	}
	if v := tu.Add(-10); v != 0 {
		t.Fatalf("Add(-10) = %d, expected clamp to 0", v)
	}
	if tu.Get() != 0 {
		t.Fatalf("Get() = %d after clamp, expected 0", tu.Get())
	}
}

func TestFind(t *testing.T) {
	var ts Tunables
	left := ts.Create("bias-left", 1, 0, 100)
	ts.Create("bias-right", 2, 0, 100)

	if ts.Find("bias-left") != left {
		t.Fatal("Find did not return the created tunable")
	}
	if ts.Find("bias-middle") != nil {
		t.Fatal("Find returned a tunable for an unknown name")
	}
}
