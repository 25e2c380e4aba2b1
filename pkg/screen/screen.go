package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/firmware"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
)

const (
	S = 128

	RefreshInterval = 500 * time.Millisecond
)

type Source interface {
	Snapshot() firmware.Snapshot
}

// Loop redraws the status display until ctx is done. Output goes to a PNG
// file when cfg.PNGPath is set, otherwise to the framebuffer device.
func Loop(ctx context.Context, cfg config.ScreenConfig, src Source) error {
	out, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return out.Clear()
		case <-ticker.C:
		}
		if err := out.Show(Render(src.Snapshot())); err != nil {
			log.Error().Err(err).Msg("Screen failure")
			return err
		}
	}
}

type output interface {
	Show(img image.Image) error
	Clear() error
	Close() error
}

func openOutput(cfg config.ScreenConfig) (output, error) {
	if cfg.PNGPath != "" {
		return pngOutput(cfg.PNGPath), nil
	}
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "opening screen %s", cfg.Device)
	}
	return &framebuffer{f: f}, nil
}

type pngOutput string

func (p pngOutput) Show(img image.Image) error {
	return gg.SavePNG(string(p), img)
}

func (p pngOutput) Clear() error { return nil }
func (p pngOutput) Close() error { return nil }

type framebuffer struct {
	f *os.File
}

func (fb *framebuffer) Show(img image.Image) error {
	buf := EncodeRGB565(img)
	if _, err := fb.f.Seek(0, 0); err != nil {
		return err
	}
	for i := 0; i < S; i++ {
		if _, err := fb.f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

func (fb *framebuffer) Clear() error {
	var buf [S * S * 2]byte
	if _, err := fb.f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fb.f.Write(buf[:])
	return err
}

func (fb *framebuffer) Close() error {
	return fb.f.Close()
}

// Render draws one frame of the status display.
func Render(s firmware.Snapshot) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	if s.DistanceCm <= sonar.ObstacleThreshold {
		dc.Push()
		dc.Translate(S-16, 14)
		DrawWarning(dc)
		dc.Pop()
	}

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString("DISTANCE", 4, 14)
	dc.DrawString(fmt.Sprintf("%d cm", s.DistanceCm), 4, 28)
	drawDistanceBar(dc, s.DistanceCm)

	dc.DrawString(s.Direction.String(), 4, 62)
	dc.DrawString(fmt.Sprintf("speed %d%% (%d/%d)", s.Speed, s.Duty[0], s.Duty[1]), 4, 76)
	dc.DrawString(trimNewline(s.Message), 4, 90)

	if s.LED {
		dc.SetRGB(0, 1, 0)
	} else {
		dc.SetRGB(0.2, 0.2, 0.2)
	}
	dc.DrawCircle(10, 112, 6)
	dc.Fill()

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(fmt.Sprintf("faults %d", s.Faults), 24, 116)
	return dc.Image()
}

const barMaxCm = 400

func drawDistanceBar(dc *gg.Context, distanceCm uint32) {
	fraction := float64(distanceCm) / barMaxCm
	if fraction > 1 {
		fraction = 1
	}
	if distanceCm <= sonar.ObstacleThreshold {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawRectangle(4, 36, 120, 10)
	dc.Stroke()
	dc.DrawRectangle(6, 38, 116*fraction, 6)
	dc.Fill()
	dc.SetRGBA(1, 0.9, 0, 1)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}

// EncodeRGB565 converts a 128x128 image to the display's rotated RGB565
// layout.
func EncodeRGB565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return buf
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}
