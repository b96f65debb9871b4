package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Assemble symbols into 5 bit Baudot words.
 *
 * Description:	Asynchronous framing: the line idles at mark, a
 *		character is one space start bit, 5 data bits with the
 *		least significant first, then at least one mark stop bit.
 *
 *		Only the first stop bit is checked.  Any extra stop
 *		time is just more idle as far as we are concerned.
 *
 *---------------------------------------------------------------*/

type framerState int

const (
	framerIdle framerState = iota
	framerCollecting
	framerStopCheck
)

func (s framerState) String() string {
	switch s {
	case framerCollecting:
		return "COLLECTING"
	case framerStopCheck:
		return "STOP-CHECK"
	default:
		return "IDLE"
	}
}

// FrameResult is what one symbol did to the framer.
type FrameResult int

const (
	FrameNone FrameResult = iota
	FrameWord
	FramingError
)

type Framer struct {
	state    framerState
	prevMark bool
	word     byte
	nbits    int
}

func NewFramer() *Framer {
	return &Framer{}
}

/*------------------------------------------------------------------
 *
 * Name:	Symbol
 *
 * Purpose:	Feed one symbol decision.
 *
 * Inputs:	mark	- True for mark (1), false for space (0).
 *
 * Returns:	FrameWord and the completed word, FramingError when
 *		the stop bit was space, otherwise FrameNone.
 *
 * Description:	A start bit is a space that follows a mark.  After a
 *		framing error the line is still at space, so the search
 *		waits for mark again before accepting another start bit.
 *
 *		Started part way through characters sent back to back,
 *		it can frame on a data bit for a few words until a stop
 *		bit fails.  One frame of idle mark always brings it back
 *		in step.
 *
 *---------------------------------------------------------------*/

func (f *Framer) Symbol(mark bool) (FrameResult, byte) {
	var result = FrameNone
	var word byte

	switch f.state {
	case framerIdle:
		if !mark && f.prevMark {
			f.state = framerCollecting
			f.word = 0
			f.nbits = 0
		}

	case framerCollecting:
		if mark {
			f.word |= 1 << f.nbits
		}
		f.nbits++
		if f.nbits == 5 {
			f.state = framerStopCheck
		}

	case framerStopCheck:
		if mark {
			result, word = FrameWord, f.word
		} else {
			result = FramingError
		}
		f.state = framerIdle
		f.word = 0
		f.nbits = 0
	}

	f.prevMark = mark
	return result, word
}

func (f *Framer) Reset() {
	*f = Framer{}
}

/* end framer.go */
