package mapview

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/benmeehan/locshare/internal/constants"
	"github.com/benmeehan/locshare/internal/models"
	"github.com/benmeehan/locshare/internal/state_managers"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// RegionDelta is the latitude/longitude span shown around the local fix.
const RegionDelta = 0.01

// Marker is one pin on the map.
type Marker struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	Self        bool
}

// Markers derives the pins for snap: the local fix first, then one per peer.
// Nothing is shown until a local fix exists.
func Markers(snap state_managers.Snapshot, now time.Time) []Marker {
	if snap.Self == nil {
		return nil
	}
	markers := make([]Marker, 0, len(snap.Peers)+1)
	markers = append(markers, Marker{
		Title:       constants.SelfMarkerTitle,
		Description: constants.SelfMarkerDescription,
		Latitude:    snap.Self.Latitude,
		Longitude:   snap.Self.Longitude,
		Self:        true,
	})
	for _, p := range snap.Peers {
		markers = append(markers, Marker{
			Title:       PeerLabel(p.UserID),
			Description: "Updated: " + updatedAt(p, now),
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
		})
	}
	return markers
}

// PeerLabel is the marker title for a peer id.
func PeerLabel(userID string) string {
	short := userID
	if len(short) > constants.PeerLabelLength {
		short = short[:constants.PeerLabelLength]
	}
	return "User " + short
}

func updatedAt(u models.LocationUpdate, now time.Time) string {
	t, err := u.Time()
	if err != nil {
		return u.Timestamp
	}
	return t.Local().Format(time.TimeOnly) + " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
}

// Render writes the current screen for snap to w.
func Render(w io.Writer, snap state_managers.Snapshot, now time.Time) {
	if snap.Phase == state_managers.Error {
		fmt.Fprintf(w, "%s\n", snap.ErrorMsg)
		return
	}
	if snap.Self == nil {
		fmt.Fprintf(w, "%s\n", constants.MessageObtaining)
		return
	}

	fmt.Fprintf(w, "Region: %.5f, %.5f (±%.2f)\n", snap.Self.Latitude, snap.Self.Longitude, RegionDelta/2)

	rows := make([][]string, 0, len(snap.Peers)+1)
	for i, m := range Markers(snap, now) {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Title,
			strconv.FormatFloat(m.Latitude, 'f', 6, 64),
			strconv.FormatFloat(m.Longitude, 'f', 6, 64),
			m.Description,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Marker", "Latitude", "Longitude", "Details"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintf(w, "\n")
}
