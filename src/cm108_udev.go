//go:build udev

package rtty

/*------------------------------------------------------------------
 *
 * Name:	CM108Inventory
 *
 * Purpose:	Take inventory of USB audio adapters and other HID
 *		devices through libudev.
 *
 * Description:	Each hidraw device is matched to the sound card that
 *		hangs off the same USB device, if any.
 *
 *------------------------------------------------------------------*/

import (
	"strconv"

	"github.com/jochenvg/go-udev"
)

func CM108Inventory() ([]CM108Device, error) {
	var u = udev.Udev{}

	var sound = map[string]CM108Device{}
	var es = u.NewEnumerate()
	if err := es.AddMatchSubsystem("sound"); err != nil {
		return nil, err
	}
	var cards, err = es.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range cards {
		if dev.Devnode() == "" || dev.SysattrValue("id") == "" {
			continue
		}
		var parent = dev.ParentWithSubsystemDevtype("usb", "usb_device")
		if parent == nil {
			continue
		}
		sound[parent.Devnode()] = CM108Device{
			SoundDevnode: dev.Devnode(),
			Card:         dev.SysattrValue("number"),
		}
	}

	var eh = u.NewEnumerate()
	if err := eh.AddMatchSubsystem("hidraw"); err != nil {
		return nil, err
	}
	hids, err := eh.Devices()
	if err != nil {
		return nil, err
	}

	var things []CM108Device
	for _, dev := range hids {
		var parent = dev.ParentWithSubsystemDevtype("usb", "usb_device")
		if parent == nil {
			continue
		}
		var vid, _ = strconv.ParseInt(parent.SysattrValue("idVendor"), 16, 32)
		var pid, _ = strconv.ParseInt(parent.SysattrValue("idProduct"), 16, 32)

		var thing = sound[parent.Devnode()]
		thing.VID = int(vid)
		thing.PID = int(pid)
		thing.Product = parent.SysattrValue("product")
		thing.HIDRaw = dev.Devnode()
		thing.USBDevnode = parent.Devnode()
		things = append(things, thing)
	}

	return things, nil
}
