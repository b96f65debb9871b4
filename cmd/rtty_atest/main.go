package main

import (
	rtty "github.com/doismellburning/rttymodem/src"
)

// Decode RTTY from audio recordings, faster than real time.
func main() {
	rtty.ATestMain()
}
