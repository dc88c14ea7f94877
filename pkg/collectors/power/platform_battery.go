//go:build !freebsd

package power

// ReadCtl has no sysctl tree behind it on this platform and always reports
// absent.
func ReadCtl(name string) (int, bool) {
	return 0, false
}

// DefaultSource reads the host batteries through the battery library.
func DefaultSource() Source {
	return NewBatterySource()
}
