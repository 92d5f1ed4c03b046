// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frame_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/xteink/ssd1677/frame"
)

func Example() {
	f, err := frame.New(&frame.GDEQ0426T82)
	if err != nil {
		log.Fatal(err)
	}

	// A black line across the top of the portrait canvas.
	for x := 0; x < f.Bounds().Dx(); x++ {
		if err := f.DrawPixel(x, 0, frame.On); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println(f.Bounds(), len(f.Bytes()))
	// Output: (0,0)-(480,800) 48000
}
