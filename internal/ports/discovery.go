package ports

import "github.com/castkit/castd/internal/hwaddr"

// ServiceKind names the discovery records a serve cycle advertises.
type ServiceKind int

// Advertised services.
const (
	// ServiceMirror is the primary session service record.
	ServiceMirror ServiceKind = iota

	// ServiceCompanion is the auxiliary record advertised on the
	// companion port.
	ServiceCompanion
)

// String returns the record name.
func (k ServiceKind) String() string {
	switch k {
	case ServiceMirror:
		return "mirror"
	case ServiceCompanion:
		return "companion"
	default:
		return "unknown"
	}
}

// Registrar publishes service records to discovery clients.
type Registrar interface {
	// Register advertises a service record on the given port.
	Register(kind ServiceKind, port uint16)

	// Unregister withdraws a service record. Safe to call for records
	// that were never registered.
	Unregister(kind ServiceKind)

	// Destroy withdraws everything and releases the registrar. Idempotent.
	Destroy()
}

// RegistrarFactory constructs a registrar advertising under the given
// service name and device identifier.
type RegistrarFactory func(name string, id hwaddr.DeviceID) (Registrar, error)
