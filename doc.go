// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package xteink is a container for the e-paper reader drivers.
//
// The SSD1677 panel driver lives in ssd1677, its frame buffer in
// ssd1677/frame and the shared SPI bus arbiter in sharedspi. analogkeys reads
// the battery and the buttons, screen2d previews frames in a terminal and
// cmd/xteink ties them together.
package xteink
