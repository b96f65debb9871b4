package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Pseudo terminal for the application's text.
 *
 * Description:	Characters written to the slave side are sent and
 *		decoded characters appear there.  The slave name is not
 *		the same every time, so a symlink with a fixed name is
 *		made to it.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

type TextPTY struct {
	master *os.File
	slave  *os.File
	link   string
}

func OpenTextPTY(link string) (*TextPTY, error) {
	var ptmx, pts, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not create pseudo terminal: %w", err)
	}

	if err := rawMode(int(pts.Fd())); err != nil {
		ptmx.Close()
		pts.Close()
		return nil, err
	}

	var p = &TextPTY{master: ptmx, slave: pts}

	if link != "" {
		os.Remove(link)
		if err := os.Symlink(pts.Name(), link); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create symlink %s: %w", link, err)
		}
		p.link = link
	}
	return p, nil
}

// rawMode is cfmakeraw.  Without it the slave echoes what the
// application writes.
func rawMode(fd int) error {
	var t, err = unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("TCGETS: %w", err)
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("TCSETS: %w", err)
	}
	return nil
}

func (p *TextPTY) Name() string {
	return p.slave.Name()
}

func (p *TextPTY) Read(b []byte) (int, error) {
	return p.master.Read(b)
}

func (p *TextPTY) Write(b []byte) (int, error) {
	return p.master.Write(b)
}

func (p *TextPTY) Close() error {
	if p.link != "" {
		os.Remove(p.link)
	}
	p.slave.Close()
	return p.master.Close()
}

/* end pty.go */
