package pca9685

import (
	"bytes"
	"testing"
)

type write struct {
	reg byte
	buf []byte
}

type fakeRegisters struct {
	writes []write
}

func (f *fakeRegisters) WriteReg(reg byte, buf []byte) error {
	f.writes = append(f.writes, write{reg, append([]byte(nil), buf...)})
	return nil
}

func (f *fakeRegisters) Close() error { return nil }

func TestFrequency(t *testing.T) {
	if f := FrequencyHz(MotorPrescale); f != 1525 {
		t.Fatalf("motor carrier = %d Hz, expected 1525", f)
	}
}

func TestConfigureWritesPrescaleWhileAsleep(t *testing.T) {
	regs := &fakeRegisters{}
	p := &PCA9685{dev: regs}
	if err := p.Configure(MotorPrescale); err != nil {
		t.Fatal(err)
	}
	if len(regs.writes) != 4 {
		t.Fatalf("writes = %v", regs.writes)
	}
	if regs.writes[0].reg != RegMode1 || regs.writes[0].buf[0]&0x10 == 0 {
		t.Fatal("device not put to sleep first")
	}
	if regs.writes[1].reg != RegPreScale || regs.writes[1].buf[0] != MotorPrescale {
		t.Fatalf("prescale write = %v", regs.writes[1])
	}
}

func TestConfigureRejectsFastPrescale(t *testing.T) {
	p := &PCA9685{dev: &fakeRegisters{}}
	if err := p.Configure(2); err == nil {
		t.Fatal("expected error for prescale 2")
	}
}

func TestSetDuty(t *testing.T) {
	for _, tc := range []struct {
		percent int
		want    []byte
	}{
		{0, []byte{0, 0, 0, 0x10}},
		{-5, []byte{0, 0, 0, 0x10}},
		{70, []byte{0, 0, 0x32, 0x0b}}, // 2866
		{100, []byte{0, 0x10, 0, 0}},
	} {
		regs := &fakeRegisters{}
		p := &PCA9685{dev: regs}
		if err := p.SetDuty(1, tc.percent); err != nil {
			t.Fatal(err)
		}
		w := regs.writes[0]
		if w.reg != RegLEDBase+4 || !bytes.Equal(w.buf, tc.want) {
			t.Errorf("%d%%: wrote %#x %v, expected %#x %v", tc.percent, w.reg, w.buf, RegLEDBase+4, tc.want)
		}
	}
}

func TestSetDutyChannelOutOfRange(t *testing.T) {
	p := &PCA9685{dev: &fakeRegisters{}}
	if err := p.SetDuty(16, 50); err == nil {
		t.Fatal("expected error for channel 16")
	}
}
