package control

import "fmt"

// RegistrationStatus is the server's state with its directory.
type RegistrationStatus int

const (
	RegistrationNotRegistered RegistrationStatus = iota
	RegistrationBadAddress
	RegistrationRequested
	RegistrationTimeOut
	RegistrationUnknownResponse
	RegistrationRegistered
	RegistrationDirectoryFull
	RegistrationVersionTooOld
	RegistrationRequirementsNotFulfilled
)

// SerializeRegistrationStatus maps status to its wire string. Values outside
// the known set render as "unknown(<n>)".
func SerializeRegistrationStatus(status RegistrationStatus) string {
	switch status {
	case RegistrationNotRegistered:
		return "not_registered"
	case RegistrationBadAddress:
		return "bad_address"
	case RegistrationRequested:
		return "requested"
	case RegistrationTimeOut:
		return "time_out"
	case RegistrationUnknownResponse:
		return "unknown_resp"
	case RegistrationRegistered:
		return "registered"
	case RegistrationDirectoryFull:
		return "directory_server_full"
	case RegistrationVersionTooOld:
		return "server_version_too_old"
	case RegistrationRequirementsNotFulfilled:
		return "requirements_not_fulfilled"
	default:
		return fmt.Sprintf("unknown(%d)", int(status))
	}
}

func (s RegistrationStatus) String() string {
	return SerializeRegistrationStatus(s)
}
