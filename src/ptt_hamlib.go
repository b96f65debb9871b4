//go:build hamlib

package rtty

/*
 * Hamlib rig control for PTT.  Model numbers are those shown by
 * "rigctl --list".
 */

import (
	"fmt"
	"time"

	"github.com/xylo04/goHamlib"
)

type hamlibPTT struct {
	rig    *goHamlib.Rig
	invert bool
}

func openHamlibPTT(model int, device string, baud int, invert bool) (PTT, error) {
	if model <= 0 {
		return nil, fmt.Errorf("hamlib model number is required, see rigctl --list")
	}

	var rig = &goHamlib.Rig{}
	if err := rig.Init(goHamlib.RigModelID(model)); err != nil {
		return nil, fmt.Errorf("unknown rig model %d: %w", model, err)
	}

	if device != "" {
		var port = goHamlib.Port{
			RigPortType: goHamlib.RIG_PORT_SERIAL,
			Portname:    device,
			Baudrate:    baud,
			Databits:    8,
			Stopbits:    1,
			Parity:      goHamlib.N,
			Handshake:   goHamlib.NO_HANDSHAKE,
		}
		if err := rig.SetPort(port); err != nil {
			rig.Cleanup()
			return nil, err
		}
	}

	// Hamlib can take a moment to finish init.
	var err error
	for range 5 {
		if err = rig.Open(); err == nil {
			return &hamlibPTT{rig: rig, invert: invert}, nil
		}
		time.Sleep(time.Second)
	}
	rig.Cleanup()
	return nil, fmt.Errorf("rig open: %w", err)
}

func (p *hamlibPTT) Set(on bool) error {
	var v = goHamlib.RIG_PTT_OFF
	if level(on, p.invert) {
		v = goHamlib.RIG_PTT_ON
	}
	return p.rig.SetPtt(goHamlib.VFOCurrent, v)
}

func (p *hamlibPTT) Close() error {
	var err = p.rig.Close()
	p.rig.Cleanup()
	return err
}
