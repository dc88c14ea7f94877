//go:build freebsd

package power

import "golang.org/x/sys/unix"

// ReadCtl reads an integer sysctl by name. Negative values, which the ACPI
// battery driver uses for "unknown", are reported as absent.
func ReadCtl(name string) (int, bool) {
	v, err := unix.SysctlUint32(name)
	if err != nil {
		return 0, false
	}
	n := int(int32(v))
	if n < 0 {
		return 0, false
	}
	return n, true
}

// DefaultSource reads the ACPI battery sysctls.
func DefaultSource() Source {
	return NewCtlSource(ReadCtl)
}
