// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package gifimage holds decoded GIF images alongside their raw bytes.
package gifimage

import (
	"bytes"
	"errors"
	"fmt"
	"image/gif"
)

// ErrDecode is returned for bytes that are not a decodable GIF.
var ErrDecode = errors.New("malformed gif data")

// Image is a decoded GIF together with the exact bytes it came from. Data is
// what gets shared or written out; GIF is what a renderer would use.
type Image struct {
	ID   string
	Data []byte
	GIF  *gif.GIF
}

// Decode decodes every frame of data.
func Decode(id string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDecode, id)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, id, err)
	}
	return &Image{ID: id, Data: data, GIF: g}, nil
}

// Frames returns the number of frames.
func (i *Image) Frames() int {
	if i == nil || i.GIF == nil {
		return 0
	}
	return len(i.GIF.Image)
}

// Size returns the logical screen size.
func (i *Image) Size() (width, height int) {
	if i == nil || i.GIF == nil {
		return 0, 0
	}
	return i.GIF.Config.Width, i.GIF.Config.Height
}
