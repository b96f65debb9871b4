package main

import (
	rtty "github.com/doismellburning/rttymodem/src"
)

// Generate audio file for RTTY text.
func main() {
	rtty.GenRTTYMain()
}
