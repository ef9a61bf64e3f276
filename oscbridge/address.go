// Package oscbridge connects the instrument to a monome grid through
// serialosc and to an OSC synth.
// See https://monome.org/docs/serialosc/osc/
package oscbridge

// Grid addresses, relative to the device prefix.
const (
	AddressKey         = "/grid/key"
	AddressLedSet      = "/grid/led/set"
	AddressLedLevelSet = "/grid/led/level/set"
	AddressLedAll      = "/grid/led/all"
)

// serialosc system addresses.
const (
	AddressSysHost   = "/sys/host"
	AddressSysPort   = "/sys/port"
	AddressSysPrefix = "/sys/prefix"
)
