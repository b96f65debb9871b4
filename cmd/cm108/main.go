package main

import (
	rtty "github.com/doismellburning/rttymodem/src"
)

// List CM108 class USB audio adapters, or toggle a GPIO pin.
func main() {
	rtty.CM108Main()
}
