package model

// Resource names one cached collection type.
type Resource string

const (
	ResourceRooms    Resource = "rooms"
	ResourceBookings Resource = "bookings"
)

// Resources lists every cached resource type.
var Resources = []Resource{ResourceRooms, ResourceBookings}

// Valid reports whether r is a known resource type.
func (r Resource) Valid() bool {
	return r == ResourceRooms || r == ResourceBookings
}

// Identifiable is implemented by every item kept in a cached collection.
type Identifiable interface {
	GetID() string
}
