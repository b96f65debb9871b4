//go:build !udev

package rtty

/*------------------------------------------------------------------
 *
 * Name:	CM108Inventory
 *
 * Purpose:	Take inventory of HID devices by walking sysfs, for
 *		builds without libudev.
 *
 *------------------------------------------------------------------*/

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var sysClassHIDRaw = "/sys/class/hidraw"

func CM108Inventory() ([]CM108Device, error) {
	var entries, err = os.ReadDir(sysClassHIDRaw)
	if err != nil {
		return nil, err
	}

	var things []CM108Device
	for _, e := range entries {
		var dev, err = filepath.EvalSymlinks(filepath.Join(sysClassHIDRaw, e.Name(), "device"))
		if err != nil {
			continue
		}

		// Walk up until the directory that has the USB ids.
		for d := dev; d != "/" && d != "."; d = filepath.Dir(d) {
			var vid, verr = readHex(filepath.Join(d, "idVendor"))
			var pid, perr = readHex(filepath.Join(d, "idProduct"))
			if verr != nil || perr != nil {
				continue
			}
			things = append(things, CM108Device{
				VID:     vid,
				PID:     pid,
				Product: readLine(filepath.Join(d, "product")),
				HIDRaw:  "/dev/" + e.Name(),
			})
			break
		}
	}
	return things, nil
}

func readLine(path string) string {
	var b, _ = os.ReadFile(path)
	return strings.TrimSpace(string(b))
}

func readHex(path string) (int, error) {
	var b, err = os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var v, perr = strconv.ParseInt(strings.TrimSpace(string(b)), 16, 32)
	return int(v), perr
}
