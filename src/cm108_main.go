package rtty

/*-------------------------------------------------------------------
 *
 * Name:	cm108
 *
 * Purpose:	Useful utility to list USB audio and HID devices.
 *
 * Optional command line arguments:
 *
 *		HID path
 *		GPIO number (default 3)
 *
 *		When specified the pin will be set high and low until interrupted.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"
)

func cm108_usage() {
	fmt.Printf("\n")
	fmt.Printf("Usage:    cm108  [ device-path [ gpio-num ] ]\n")
	fmt.Printf("\n")
	fmt.Printf("With no command line arguments, this will produce a list of\n")
	fmt.Printf("Human Interface Devices (HID) and indicate which ones can be\n")
	fmt.Printf("used for GPIO PTT.\n")
	fmt.Printf("\n")
	fmt.Printf("Specify the HID device path to test the PTT function.\n")
	fmt.Printf("Its state should change once per second.\n")
	fmt.Printf("GPIO 3 is the default.  A different number can be optionally specified.\n")
	os.Exit(1)
}

func CM108Main() {
	if len(os.Args) >= 2 {
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			cm108_usage()
		}
		var path = os.Args[1]
		var gpio = 3
		if len(os.Args) >= 3 {
			gpio, _ = strconv.Atoi(os.Args[2])
		}
		if gpio < 1 || gpio > 8 {
			fmt.Printf("GPIO number must be in range of 1 - 8.\n")
			cm108_usage()
		}
		var state = false
		for {
			if state {
				fmt.Printf("1")
			} else {
				fmt.Printf("0")
			}
			if err := CM108SetGPIOPin(path, gpio, state); err != nil {
				fmt.Printf("\nWRITE ERROR for USB Audio Adapter GPIO!\n%s\n", err)
				cm108_usage()
			}
			time.Sleep(time.Second)
			state = !state
		}
	}

	// Take inventory of USB Audio adapters and other HID devices.
	var things, err = CM108Inventory()
	if err != nil {
		fmt.Printf("Can't take inventory of HID devices: %s\n", err)
		os.Exit(1)
	}

	printInventory(os.Stdout, things)
}

func printInventory(w io.Writer, things []CM108Device) {
	var tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "\tVID\tPID\tProduct\tSound\tCard\tHID [ptt]\tUSB\n")
	fmt.Fprintf(tw, "\t---\t---\t-------\t-----\t----\t---------\t---\n")
	for _, t := range things {
		var good = ""
		if t.Good() {
			good = "**"
		}
		fmt.Fprintf(tw, "%s\t%04x\t%04x\t%s\t%s\t%s\t%s\t%s\n",
			good, t.VID, t.PID, t.Product, t.SoundDevnode, t.Card, t.HIDRaw, t.USBDevnode)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "** = Can use Audio Adapter GPIO for PTT.\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "By default the hidraw devices are accessible only by root.  Create a file like\n")
	fmt.Fprintf(w, "\"/etc/udev/rules.d/99-cm108.rules\" with the following contents so members of\n")
	fmt.Fprintf(w, "the audio group can use them, then replug the adapter.\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "SUBSYSTEM==\"hidraw\", ATTRS{idVendor}==\"0d8c\", GROUP=\"audio\", MODE=\"0660\"\n")
}

/* end cm108_main.go */
