// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package analogkeys reads the battery level and the front buttons of an X4
// style reader.
//
// The buttons are wired as two resistor ladders, each feeding one ADC input:
// pressing a button pulls the input to a distinct voltage. The battery is
// measured through a resistor divider on a third input.
package analogkeys
