package main

import (
	rtty "github.com/doismellburning/rttymodem/src"
)

// RTTY sound card modem.
func main() {
	rtty.ModemMain()
}
