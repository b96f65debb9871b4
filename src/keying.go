package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Key the transmitter in step with the audio stream.
 *
 * Description:	The audio callback and the keying run on different
 *		schedules.  Everything here is measured against the
 *		playback clock, counts kept by the audio callback:
 *
 *		played		- samples handed to the device, including
 *				  silence filled in when nothing was queued.
 *		drained		- transmit ring position consumed.
 *		lastRingAt	- play index of the newest sample that came
 *				  from the ring.
 *
 *		Key up happens first, then the lead guard of silence is
 *		queued, so no rendered sample can be played less than
 *		the lead guard after PTT went on.
 *
 *		Key down waits until the ring has been drained past the
 *		end of the burst and the device has played the trail
 *		guard beyond the last sample of it.
 *
 *---------------------------------------------------------------*/

import (
	"sync/atomic"
)

type PlaybackClock struct {
	played     atomic.Int64
	drained    atomic.Int64
	lastRingAt atomic.Int64
}

func NewPlaybackClock() *PlaybackClock {
	var c = &PlaybackClock{}
	c.lastRingAt.Store(-1)
	return c
}

// Played is the number of samples the device has been given.
func (c *PlaybackClock) Played() int64 {
	return c.played.Load()
}

// advance is called by the audio callback after filling a buffer of
// total samples, the first fromRing of which came from the ring.
func (c *PlaybackClock) advance(total, fromRing int, ringPos int64) {
	var base = c.played.Load()
	if fromRing > 0 {
		c.lastRingAt.Store(base + int64(fromRing) - 1)
	}
	c.drained.Store(ringPos)
	c.played.Store(base + int64(total))
}

type keyState int

const (
	keyIdle keyState = iota
	keySending
	keyTrailing
)

// KeyingController is owned by the transmit goroutine.
type KeyingController struct {
	ptt   PTT
	clock *PlaybackClock

	state    keyState
	endPos   int64
	trail    int64
	assertAt int64

	keyed atomic.Bool // Readable from any goroutine.
}

func NewKeyingController(ptt PTT, clock *PlaybackClock) *KeyingController {
	if ptt == nil {
		ptt = NoPTT{}
	}
	return &KeyingController{ptt: ptt, clock: clock}
}

/*------------------------------------------------------------------
 *
 * Name:	KeyUp
 *
 * Purpose:	Start a burst.
 *
 * Returns:	needLead	- True when PTT was just asserted and the
 *				  caller must queue the lead guard before
 *				  any signal.  False when a previous burst
 *				  was still holding PTT in its trail.
 *		err		- From the PTT line.  PTT is left off.
 *
 *---------------------------------------------------------------*/

func (k *KeyingController) KeyUp() (bool, error) {
	switch k.state {
	case keySending:
		return false, nil
	case keyTrailing:
		k.state = keySending
		return false, nil
	}

	if err := k.ptt.Set(true); err != nil {
		return false, err
	}
	k.assertAt = k.clock.Played()
	k.state = keySending
	k.keyed.Store(true)
	return true, nil
}

// EndBurst records the ring position just past the last sample of the
// burst and the trail guard in samples.
func (k *KeyingController) EndBurst(endPos int64, trail int64) {
	if k.state != keySending {
		return
	}
	k.endPos = endPos
	k.trail = trail
	k.state = keyTrailing
}

/*------------------------------------------------------------------
 *
 * Name:	Poll
 *
 * Purpose:	Release PTT once the trail guard has been played.
 *
 * Returns:	released	- PTT went off on this call.
 *		err		- From the PTT line.  The release is retried
 *				  on the next poll.
 *
 *---------------------------------------------------------------*/

func (k *KeyingController) Poll() (bool, error) {
	if k.state != keyTrailing {
		return false, nil
	}
	if k.clock.drained.Load() < k.endPos {
		return false, nil
	}

	var releaseAt = k.clock.lastRingAt.Load() + 1 + k.trail
	if k.clock.Played() < releaseAt {
		return false, nil
	}

	if err := k.ptt.Set(false); err != nil {
		return false, err
	}
	k.state = keyIdle
	k.keyed.Store(false)
	return true, nil
}

// ForceOff drops PTT immediately, for shutdown.
func (k *KeyingController) ForceOff() error {
	if k.state == keyIdle {
		return nil
	}
	k.state = keyIdle
	k.keyed.Store(false)
	return k.ptt.Set(false)
}

// Keyed reports PTT state.  Safe from any goroutine.
func (k *KeyingController) Keyed() bool {
	return k.keyed.Load()
}

// AssertedAt is the play position when PTT last went on.
func (k *KeyingController) AssertedAt() int64 {
	return k.assertAt
}

/* end keying.go */
