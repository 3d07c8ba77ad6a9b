//go:build linux

package device

// On Linux the preferred order is ALSA, then PulseAudio, then JACK; ALSA
// is what the selector maps PreferredHostAPI-unspecified configurations to
// since it is always present on a Linux host that has sound at all.
func platformDefaultHostAPI() HostAPI {
	return HostAPIALSA
}
