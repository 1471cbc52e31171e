// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gifimage

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
)

// Sample returns the bytes of a tiny two frame GIF. It is used by tests across
// packages that need real image data.
func Sample() []byte {
	pal := color.Palette{color.Black, color.White}
	g := &gif.GIF{}
	for i := 0; i < 2; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
		frame.SetColorIndex(i%2, 0, 1)
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 10)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
