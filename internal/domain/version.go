package domain

// OcppVersion is the OCPP protocol version negotiated for a connection.
type OcppVersion string

const (
	OcppV16  OcppVersion = "V16"
	OcppV201 OcppVersion = "V201"
	OcppV21  OcppVersion = "V21"
)

// Subprotocol returns the WebSocket subprotocol string advertised for this version.
func (v OcppVersion) Subprotocol() string {
	switch v {
	case OcppV16:
		return "ocpp1.6"
	case OcppV201:
		return "ocpp2.0.1"
	case OcppV21:
		return "ocpp2.1"
	default:
		return ""
	}
}

// VersionFromSubprotocol maps a Sec-WebSocket-Protocol entry to an OcppVersion.
func VersionFromSubprotocol(s string) (OcppVersion, bool) {
	switch s {
	case "ocpp1.6":
		return OcppV16, true
	case "ocpp2.0.1":
		return OcppV201, true
	case "ocpp2.1":
		return OcppV21, true
	default:
		return "", false
	}
}
