package keystore

// DeviceAuthenticator is the default authenticator for headless use:
// no passcode/biometric hardware is assumed, so private records degrade
// to device-encrypted public records and reads never prompt.
type DeviceAuthenticator struct{}

func (DeviceAuthenticator) CanAuthenticate() bool              { return false }
func (DeviceAuthenticator) RequestPresence(prompt string) bool { return true }

// StaticAuthenticator scripts presence behavior, for tests.
type StaticAuthenticator struct {
	Can   bool
	Grant bool
}

func (a StaticAuthenticator) CanAuthenticate() bool              { return a.Can }
func (a StaticAuthenticator) RequestPresence(prompt string) bool { return a.Grant }
