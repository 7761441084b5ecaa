package coreaudio

// Devices enumerates the hardware audio devices known to the system.
func Devices() ([]DeviceInfo, error) {
	return defaultEngine().devices()
}

// DefaultOutputDevice returns the system's current default output device.
func DefaultOutputDevice() (DeviceInfo, error) {
	return defaultEngine().defaultDevice(false)
}

// DefaultInputDevice returns the system's current default input device.
func DefaultInputDevice() (DeviceInfo, error) {
	return defaultEngine().defaultDevice(true)
}
