package qrportal

import (
	"io"
	"log/slog"
	"strings"

	"rsc.io/qr"
)

// QRRenderer draws payload for the user to scan.
type QRRenderer interface {
	Render(payload string)
}

// RendererFunc adapts a plain function to QRRenderer.
type RendererFunc func(payload string)

// Render implements QRRenderer.
func (f RendererFunc) Render(payload string) {
	f(payload)
}

const quietZone = 2

// Terminal draws QR codes with half-block characters,
// two modules per character cell.
type Terminal struct {
	W io.Writer
}

// Render implements QRRenderer. Encoding failures are
// logged.
func (t Terminal) Render(payload string) {
	code, err := qr.Encode(payload, qr.M)
	if err != nil {
		slog.Error("encoding qr code", "error", err)

		return
	}

	if _, err := io.WriteString(t.W, Blocks(code)); err != nil {
		slog.Error("drawing qr code", "error", err)
	}
}

// Blocks renders code as lines of half blocks, dark
// modules drawn as spaces on a light background so the
// code scans on dark terminals.
func Blocks(code *qr.Code) string {
	light := func(x, y int) bool {
		if x < 0 || y < 0 || x >= code.Size || y >= code.Size {
			return true
		}

		return !code.Black(x, y)
	}

	var sb strings.Builder

	for y := -quietZone; y < code.Size+quietZone; y += 2 {
		for x := -quietZone; x < code.Size+quietZone; x++ {
			top, bottom := light(x, y), light(x, y+1)

			switch {
			case top && bottom:
				sb.WriteString("█")
			case top:
				sb.WriteString("▀")
			case bottom:
				sb.WriteString("▄")
			default:
				sb.WriteByte(' ')
			}
		}

		sb.WriteByte('\n')
	}

	return sb.String()
}
