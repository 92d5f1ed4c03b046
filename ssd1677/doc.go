// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1677 controls e-paper panels driven by a Solomon Systech SSD1677,
// such as the Good Display GDEQ0426T82 4.26" 800x480 panel.
//
// The controller is reached over a 4-wire SPI link with a data/command pin, a
// reset pin and a busy pin. The link may be shared with other devices through
// package sharedspi.
//
// The driver tracks whether the analog rails are up. A refresh requested while
// they are down is run as HalfRefresh, which powers them up. After
// EnterDeepSleep the controller only answers again once Init pulsed the reset
// line.
//
// Datasheet:
// https://www.good-display.com/companyfile/101.html
package ssd1677
