package status

import (
	"errors"
	"testing"
)

type fakeSerial struct {
	sent []byte
	fail bool
}

func (f *fakeSerial) TransmitByte(b byte) error {
	if f.fail {
		return errors.New("port closed")
	}
	f.sent = append(f.sent, b)
	return nil
}

// drain delivers transmit-complete until the transmitter goes idle.
func drain(t *testing.T, tr *Transmitter) {
	t.Helper()
	for i := 0; tr.State() == Sending; i++ {
		if i > 100 {
			t.Fatal("transmitter never went idle")
		}
		tr.OnSent()
	}
}

func TestKickStreamsWholeMessage(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)

	tr.Kick()
	if tr.State() != Sending {
		t.Fatalf("state after kick = %v, expected sending", tr.State())
	}
	drain(t, tr)

	if string(ser.sent) != "PARADO\n" {
		t.Fatalf("sent %q, expected %q", ser.sent, "PARADO\n")
	}
	if tr.cursor != 0 {
		t.Fatalf("cursor = %d after a full message, expected 0", tr.cursor)
	}
}

func TestMessageRepeatsOnEachKick(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Backward)

	tr.Kick()
	drain(t, tr)
	tr.Kick()
	drain(t, tr)

	if string(ser.sent) != "TRAS\nTRAS\n" {
		t.Fatalf("sent %q", ser.sent)
	}
}

func TestKickWhileSendingStartsFreshCopy(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Forward)

	tr.Kick()
	tr.OnSent()
	// The completion for 'R' never arrives.
	tr.Kick()
	if tr.cursor != 0 || tr.State() != Sending {
		t.Fatalf("cursor=%d state=%v after kick, expected a fresh copy", tr.cursor, tr.State())
	}
	drain(t, tr)

	if string(ser.sent) != "FRFRENTE\n" {
		t.Fatalf("sent %q, expected the abandoned prefix then one whole copy", ser.sent)
	}
}

func TestSelectRestartsImmediately(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)
	restarts := 0
	tr.OnRestart = func() { restarts++ }

	// Part way through the old message.
	tr.Kick()
	tr.OnSent()
	tr.OnSent()
	ser.sent = nil

	tr.Select(Speed70)
	if tr.cursor != 0 {
		t.Fatalf("cursor = %d after select, expected 0", tr.cursor)
	}
	if len(ser.sent) != 1 || ser.sent[0] != 'V' {
		t.Fatalf("sent %q after select, expected first byte 'V'", ser.sent)
	}
	if restarts != 1 {
		t.Fatalf("OnRestart ran %d times, expected 1", restarts)
	}
	if tr.Active() != Speed70 {
		t.Fatalf("active = %q", tr.Active())
	}

	drain(t, tr)
	if string(ser.sent) != "Velocidade 70%\n" {
		t.Fatalf("sent %q", ser.sent)
	}
}

func TestSelectSameMessageRestarts(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)

	tr.Select(Forward)
	drain(t, tr)
	tr.Select(Forward)
	drain(t, tr)

	if string(ser.sent) != "FRENTE\nFRENTE\n" {
		t.Fatalf("sent %q", ser.sent)
	}
}

func TestSpuriousSentWhileIdle(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)
	tr.OnSent()
	if tr.State() != Idle || len(ser.sent) != 0 {
		t.Fatalf("state = %v, sent %q", tr.State(), ser.sent)
	}
}

func TestRefreshOnlyReplacesReports(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)

	if tr.Refresh(NewReport("050cm\n")) {
		t.Fatal("Refresh replaced a fixed message")
	}

	tr.Select(NewReport("050cm\n"))
	if !tr.Refresh(NewReport("149cm\n")) {
		t.Fatal("Refresh did not replace the active report")
	}
	if tr.Active().Text != "050cm\n" || tr.State() != Sending {
		t.Fatalf("refresh disturbed the copy on the wire: active=%q state=%v", tr.Active().Text, tr.State())
	}
	drain(t, tr)
	if tr.Active().Text != "149cm\n" {
		t.Fatalf("active = %q after the copy ended", tr.Active().Text)
	}
	tr.Kick()
	drain(t, tr)

	if string(ser.sent) != "050cm\n149cm\n" {
		t.Fatalf("sent %q, expected two whole reports", ser.sent)
	}
}

func TestRefreshWhileIdleTakesEffectAtOnce(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, NewReport("000cm\n"))

	tr.Refresh(NewReport("042cm\n"))
	tr.Kick()
	drain(t, tr)
	if string(ser.sent) != "042cm\n" {
		t.Fatalf("sent %q", ser.sent)
	}
}

func TestSelectDiscardsHeldReport(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)

	tr.Select(NewReport("050cm\n"))
	tr.Refresh(NewReport("149cm\n"))
	tr.Select(Forward)
	drain(t, tr)
	tr.Kick()
	drain(t, tr)

	if tr.Active() != Forward {
		t.Fatalf("active = %q, expected FRENTE", tr.Active().Text)
	}
	if string(ser.sent) != "0FRENTE\nFRENTE\n" {
		t.Fatalf("sent %q", ser.sent)
	}
}

func TestTransmitErrorsAreCounted(t *testing.T) {
	ser := &fakeSerial{fail: true}
	tr := NewTransmitter(ser, Stopped)
	tr.Kick()
	if tr.Faults() != 1 {
		t.Fatalf("faults = %d, expected 1", tr.Faults())
	}
	if tr.State() != Idle || tr.cursor != 0 {
		t.Fatalf("state=%v cursor=%d after a refused byte, expected idle at 0", tr.State(), tr.cursor)
	}
}

func TestResumesAfterRefusedByte(t *testing.T) {
	ser := &fakeSerial{fail: true}
	tr := NewTransmitter(ser, Stopped)

	tr.Kick()
	ser.fail = false
	tr.Kick()
	drain(t, tr)

	if string(ser.sent) != "PARADO\n" {
		t.Fatalf("sent %q, expected the message to resume on the next kick", ser.sent)
	}
}

func TestRefusedByteMidMessage(t *testing.T) {
	ser := &fakeSerial{}
	tr := NewTransmitter(ser, Stopped)

	tr.Kick()
	tr.OnSent()
	ser.fail = true
	tr.OnSent()
	if tr.State() != Idle {
		t.Fatalf("state = %v after a refused byte, expected idle", tr.State())
	}
	ser.fail = false
	tr.Kick()
	drain(t, tr)

	if string(ser.sent) != "PAPARADO\n" {
		t.Fatalf("sent %q", ser.sent)
	}
	if tr.Faults() != 1 {
		t.Fatalf("faults = %d, expected 1", tr.Faults())
	}
}
