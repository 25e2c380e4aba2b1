// Package status streams the robot's status line over the serial link, one
// byte per transmit-complete interrupt.
package status

type Kind uint8

const (
	Fixed Kind = iota
	DistanceReport
)

// Message is an immutable status line. The active message is replaced, never
// modified.
type Message struct {
	Kind Kind
	Text string
}

func (m *Message) String() string {
	return m.Text
}

var (
	Forward          = &Message{Text: "FRENTE\n"}
	Obstacle         = &Message{Text: "OBSTACULO\n"}
	Backward         = &Message{Text: "TRAS\n"}
	CounterClockwise = &Message{Text: "ANTI-HORARIO\n"}
	Clockwise        = &Message{Text: "HORARIO\n"}
	Stopped          = &Message{Text: "PARADO\n"}
	Speed70          = &Message{Text: "Velocidade 70%\n"}
	Speed80          = &Message{Text: "Velocidade 80%\n"}
	Speed100         = &Message{Text: "Velocidade 100%\n"}
)

// NewReport wraps a formatted distance line, e.g. "042cm\n".
func NewReport(text string) *Message {
	return &Message{Kind: DistanceReport, Text: text}
}
