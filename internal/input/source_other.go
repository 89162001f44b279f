//go:build !linux && !windows

package input

func openPlatform(Options) (Source, error) {
	return nil, ErrUnsupportedPlatform
}

// ListDevices always fails on platforms without an input backend.
func ListDevices() ([]DeviceInfo, error) {
	return nil, ErrUnsupportedPlatform
}
