// pkg/platform/elevation.go - administrative privilege detection.

package platform

import (
	"golang.org/x/sys/windows"
)

// Elevation is read once at startup and never mutated; it gates every
// remediation write.
type Elevation struct {
	IsElevated bool
}

// CurrentElevation verifies whether the current process token is a member
// of BUILTIN\Administrators.
func CurrentElevation() (Elevation, error) {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return Elevation{}, err
	}
	defer windows.FreeSid(adminSid)

	token := windows.Token(0)
	isMember, err := token.IsMember(adminSid)
	if err != nil {
		return Elevation{}, err
	}
	return Elevation{IsElevated: isMember}, nil
}
