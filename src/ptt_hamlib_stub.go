//go:build !hamlib

package rtty

func openHamlibPTT(model int, device string, baud int, invert bool) (PTT, error) {
	return nil, ErrNoHamlib
}
