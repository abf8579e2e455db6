package constants

const (
	// SessionIDPrefix is prepended to every generated session id.
	SessionIDPrefix = "user_"

	// SessionIDLength is the number of random characters after the prefix.
	SessionIDLength = 9

	// PeerLabelLength is how many characters of a peer id appear in its marker label.
	PeerLabelLength = 5
)

// User-visible messages.
const (
	MessagePermissionDenied = "Location permission denied"
	MessageObtaining        = "Obtaining location..."
	SelfMarkerTitle         = "You"
	SelfMarkerDescription   = "You are here"
)
