package rtty

/*------------------------------------------------------------------
 *
 * Purpose:	Use the GPIO pins of a CM108 class USB audio adapter
 *		for PTT.
 *
 * Description:	These chips have GPIO pins reached through the HID
 *		interface.  An output report of 5 bytes sets them:
 *
 *			0, 0, data, direction mask, 0
 *
 *		Several other C-Media parts, SSS parts, and the All in
 *		One Cable (AIOC) behave the same way.
 *
 *		By default the hidraw devices are accessible only by
 *		root.  A udev rule such as
 *
 *		SUBSYSTEM=="hidraw", ATTRS{idVendor}=="0d8c", GROUP="audio", MODE="0660"
 *
 *		makes them usable by members of the audio group.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	cmediaVID = 0x0d8c
	sssVID    = 0x0c76
	aiocVID   = 0x1209
	aiocPID   = 0x7388
)

// GoodCM108 reports whether a USB vendor and product are known to have
// usable GPIO.
func GoodCM108(vid, pid int) bool {
	switch vid {
	case cmediaVID:
		return (pid >= 0x0008 && pid <= 0x000f) ||
			pid == 0x0012 || pid == 0x0013 ||
			(pid >= 0x0139 && pid <= 0x013c)
	case sssVID:
		return pid == 0x1605 || pid == 0x1607 || pid == 0x160b
	case aiocVID:
		return pid == aiocPID
	}
	return false
}

// CM108Device is one HID device found by the inventory.
type CM108Device struct {
	VID, PID     int
	Product      string
	HIDRaw       string // e.g. /dev/hidraw2
	USBDevnode   string
	SoundDevnode string
	Card         string // ALSA card number, when the same USB device has one.
}

func (d CM108Device) Good() bool {
	return GoodCM108(d.VID, d.PID)
}

// CM108FindHID returns the first usable adapter.
func CM108FindHID() (string, error) {
	var things, err = CM108Inventory()
	if err != nil {
		return "", err
	}
	for _, t := range things {
		if t.Good() && t.HIDRaw != "" {
			return t.HIDRaw, nil
		}
	}
	return "", errors.New("no CM108 compatible USB audio adapter found")
}

/*-------------------------------------------------------------------
 *
 * Name:	CM108SetGPIOPin
 *
 * Purpose:	Set one GPIO pin of the CM108 or similar.
 *
 * Inputs:	name		- Name of device such as /dev/hidraw2.
 *
 *		num		- GPIO number, range 1 thru 8.
 *
 *		state		- true for high.
 *
 * Description:	Only one pin per device is driven.  The others are
 *		left as inputs.
 *
 *------------------------------------------------------------------*/

func CM108SetGPIOPin(name string, num int, state bool) error {
	if num < 1 || num > 8 {
		return fmt.Errorf("%s CM108 GPIO number %d must be in range of 1 thru 8", name, num)
	}

	var iomask = 1 << (num - 1) // 0=input, 1=output
	var iodata = 0
	if state {
		iodata = 1 << (num - 1)
	}
	return cm108Write(name, iomask, iodata)
}

func cm108Report(iomask, iodata int) []byte {
	// The first two bytes are 0: report number, then HID reserved.
	return []byte{0, 0, byte(iodata), byte(iomask), 0}
}

func cm108Write(name string, iomask, iodata int) error {
	var f, err = os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w (is there a udev rule giving the audio group access to hidraw?)", err)
		}
		return err
	}
	defer f.Close()

	var info, ioctlErr = unix.IoctlHIDGetRawInfo(int(f.Fd()))
	if ioctlErr == nil && !GoodCM108(int(uint16(info.Vendor)), int(uint16(info.Product))) {
		return fmt.Errorf("%s is not a supported device type, vid=%04x pid=%04x", name, uint16(info.Vendor), uint16(info.Product))
	}

	var report = cm108Report(iomask, iodata)
	var n, werr = f.Write(report)
	if werr != nil {
		return fmt.Errorf("write to %s: %w", name, werr)
	}
	if n != len(report) {
		return fmt.Errorf("write to %s: short write %d of %d", name, n, len(report))
	}
	return nil
}

/* end cm108.go */
