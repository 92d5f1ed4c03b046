// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sharedspi shares one SPI port between several chips, each owning
// its own chip select GPIO.
//
// A transaction holds the bus for its whole duration: chip select is pulled
// low, one or more writes are issued, then chip select is released. Devices
// on the same Bus never interleave bytes. No ordering between waiting devices
// is guaranteed.
package sharedspi
