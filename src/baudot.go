package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Baudot (ITA2) 5 bit code conversion.
 *
 * Description:	Two fixed tables, LETTERS and FIGURES, indexed by the
 *		5 bit code.  A zero entry means the code has no printable
 *		meaning in that table and is dropped.
 *
 *		LTRS and FIGS are the two shift controls.  They change
 *		the shift state and produce no character.
 *
 *		Space, LF and CR appear in both tables so they never
 *		need a shift.
 *
 *		Bit 0 of the code is the first data bit on the air.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"unicode"
)

const (
	CodeNull    byte = 0x00
	CodeLF      byte = 0x02
	CodeSpace   byte = 0x04
	CodeCR      byte = 0x08
	CodeFigures byte = 0x1B
	CodeLetters byte = 0x1F
)

// Shift selects one of the two code tables.
type Shift int

const (
	Letters Shift = iota
	Figures
)

func (s Shift) String() string {
	if s == Figures {
		return "FIGS"
	}
	return "LTRS"
}

type Charset string

const (
	CharsetITA2 Charset = "ita2"
	CharsetUS   Charset = "us"
)

var ita2Letters = [32]rune{
	0, 'E', '\n', 'A', ' ', 'S', 'I', 'U',
	'\r', 'D', 'R', 'J', 'N', 'F', 'C', 'K',
	'T', 'Z', 'L', 'W', 'H', 'Y', 'P', 'Q',
	'O', 'B', 'G', 0, 'M', 'X', 'V', 0,
}

var ita2Figures = [32]rune{
	0, '3', '\n', '-', ' ', '\'', '8', '7',
	'\r', 0, '4', '\a', ',', 0, ':', '(',
	'5', '+', ')', '2', 0, '6', '0', '1',
	'9', '?', 0, 0, '.', '/', '=', 0,
}

// US teletype figures differ from ITA2 in a handful of positions.
var usFigures = [32]rune{
	0, '3', '\n', '-', ' ', '\a', '8', '7',
	'\r', '$', '4', '\'', ',', '!', ':', '(',
	'5', '"', ')', '2', '#', '6', '0', '1',
	'9', '?', '&', 0, '.', '/', ';', 0,
}

type codePoint struct {
	code  byte
	shift Shift
	both  bool // Present in both tables.
}

// Baudot is an immutable code table pair plus the shift policy.
// Shift state is not kept here; each direction owns its own.
type Baudot struct {
	letters        [32]rune
	figures        [32]rune
	reverse        map[rune]codePoint
	unshiftOnSpace bool
}

/*------------------------------------------------------------------
 *
 * Name:	NewBaudot
 *
 * Purpose:	Build the code tables for a character set.
 *
 * Inputs:	charset		- "ita2" or "us".  Empty means ita2.
 *
 *		unshiftOnSpace	- A space returns the shift state to LETTERS.
 *
 * Returns:	Table pair or error for an unknown character set.
 *
 *---------------------------------------------------------------*/

func NewBaudot(charset Charset, unshiftOnSpace bool) (*Baudot, error) {
	var b = &Baudot{letters: ita2Letters, unshiftOnSpace: unshiftOnSpace}

	switch charset {
	case CharsetITA2, "":
		b.figures = ita2Figures
	case CharsetUS:
		b.figures = usFigures
	default:
		return nil, fmt.Errorf("unknown character set %q", charset)
	}

	var reverse, err = buildReverse(&b.letters, &b.figures)
	if err != nil {
		return nil, err
	}
	b.reverse = reverse

	return b, nil
}

// buildReverse checks that the tables are consistent and returns the
// character to code map used for encoding.
func buildReverse(letters, figures *[32]rune) (map[rune]codePoint, error) {
	var reverse = make(map[rune]codePoint, 64)

	for code := range 32 {
		var l, f = letters[code], figures[code]

		if byte(code) == CodeLetters || byte(code) == CodeFigures {
			if l != 0 || f != 0 {
				return nil, fmt.Errorf("shift code 0x%02x must not map to a character", code)
			}
			continue
		}

		if l != 0 && l == f {
			reverse[l] = codePoint{code: byte(code), both: true}
			continue
		}

		for _, e := range []struct {
			r     rune
			shift Shift
		}{{l, Letters}, {f, Figures}} {
			if e.r == 0 {
				continue
			}
			if prev, dup := reverse[e.r]; dup {
				return nil, fmt.Errorf("character %q appears at 0x%02x and 0x%02x", e.r, prev.code, code)
			}
			reverse[e.r] = codePoint{code: byte(code), shift: e.shift}
		}
	}

	return reverse, nil
}

func init() {
	// Tables are fixed; a bad edit should fail at start up, not on the air.
	for _, figures := range []*[32]rune{&ita2Figures, &usFigures} {
		if _, err := buildReverse(&ita2Letters, figures); err != nil {
			panic(err)
		}
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Decode
 *
 * Purpose:	Convert one received code to a character.
 *
 * Inputs:	code	- 5 bit code.  Upper bits are ignored.
 *
 *		shift	- Current shift state.
 *
 * Returns:	r	- Character, if any.
 *		ok	- False for shift codes and unassigned codes.
 *		next	- New shift state.
 *
 *---------------------------------------------------------------*/

func (b *Baudot) Decode(code byte, shift Shift) (r rune, ok bool, next Shift) {
	code &= 0x1f

	switch code {
	case CodeLetters:
		return 0, false, Letters
	case CodeFigures:
		return 0, false, Figures
	}

	if code == CodeSpace && b.unshiftOnSpace {
		shift = Letters
	}

	if shift == Figures {
		r = b.figures[code]
	} else {
		r = b.letters[code]
	}

	return r, r != 0, shift
}

/*------------------------------------------------------------------
 *
 * Name:	Encode
 *
 * Purpose:	Convert one character to codes for transmission.
 *
 * Inputs:	r	- Character.  Lower case letters are folded.
 *
 *		shift	- Current transmit shift state.
 *
 *		dst	- Codes are appended here.
 *
 * Returns:	dst with zero, one or two codes appended, the new shift
 *		state, and false if the character has no code.
 *
 * Description:	A shift code is sent only when the character is not
 *		in the current table.
 *
 *---------------------------------------------------------------*/

func (b *Baudot) Encode(r rune, shift Shift, dst []byte) ([]byte, Shift, bool) {
	var cp, found = b.reverse[unicode.ToUpper(r)]
	if !found {
		return dst, shift, false
	}

	if !cp.both && cp.shift != shift {
		if cp.shift == Figures {
			dst = append(dst, CodeFigures)
		} else {
			dst = append(dst, CodeLetters)
		}
		shift = cp.shift
	}

	if cp.code == CodeSpace && b.unshiftOnSpace {
		shift = Letters
	}

	return append(dst, cp.code), shift, true
}

// Encodable reports whether r has a code in either table.
func (b *Baudot) Encodable(r rune) bool {
	var _, found = b.reverse[unicode.ToUpper(r)]
	return found
}

// ShiftState is the shift register for one direction of traffic.
type ShiftState struct {
	shift Shift
}

func (s *ShiftState) Get() Shift {
	return s.shift
}

func (s *ShiftState) Reset() {
	s.shift = Letters
}

// DecodeWord applies one received code to the state.
func (s *ShiftState) DecodeWord(b *Baudot, code byte) (rune, bool) {
	var r, ok, next = b.Decode(code, s.shift)
	s.shift = next
	return r, ok
}

// EncodeRune appends the codes for r and advances the state.
func (s *ShiftState) EncodeRune(b *Baudot, r rune, dst []byte) ([]byte, bool) {
	var out, next, ok = b.Encode(r, s.shift, dst)
	s.shift = next
	return out, ok
}

/* end baudot.go */
