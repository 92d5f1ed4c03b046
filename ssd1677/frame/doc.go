// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package frame implements the bit-packed image buffer written to SSD1677
// controller RAM.
//
// The panel is mounted rotated, so the logical canvas is portrait: a point
// (x, y) lands at RAM column y and RAM row Height-x-1. Frames implement
// draw.Image with the image1bit color model, so the standard library and font
// drawers can render into them: image1bit.On (white) is a blank pixel and
// image1bit.Off (black) an inked one.
package frame
