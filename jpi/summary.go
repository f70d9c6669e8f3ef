package jpi

import (
	"fmt"
	"io"
	"strings"
)

// PrintFlightInfo writes a human-readable terminal summary of one decoded
// flight, in the banner-and-sections style of the teacher's RKD session
// printer: a separator rule, identifying fields, then grouped sections —
// here the prelude configuration and the tach/hobb/position summary in
// place of RKD's GPS/IMU sections.
func PrintFlightInfo(w io.Writer, listing FlightListing, summary FlightSummary) {
	sep := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  Flight %d\n", listing.ID)
	fmt.Fprintf(w, "%s\n", sep)
	fmt.Fprintf(w, "  Start:        %s %s\n", listing.Date, listing.Time)
	fmt.Fprintf(w, "  Interval:     %ds\n", listing.Interval)
	fmt.Fprintf(w, "  Block size:   %s bytes\n", formatThousands(listing.Size))

	fmt.Fprintf(w, "\n  Samples:\n")
	fmt.Fprintf(w, "    Count:        %s\n", formatThousands(summary.Samples))
	fmt.Fprintf(w, "    Time off:     %s\n", summary.TimeOff)
	fmt.Fprintf(w, "    Time in:      %s\n", summary.TimeIn)

	fmt.Fprintf(w, "\n  Engine hours:\n")
	fmt.Fprintf(w, "    Tach start:   %.1f\n", summary.TachStart)
	fmt.Fprintf(w, "    Tach end:     %.1f\n", summary.TachEnd)
	fmt.Fprintf(w, "    Tach hours:   %.1f\n", summary.TachDuration)
	fmt.Fprintf(w, "    Hobb hours:   %.1f\n", summary.HobbDuration)

	if summary.StartLat != "" || summary.EndLat != "" {
		fmt.Fprintf(w, "\n  Position:\n")
		fmt.Fprintf(w, "    Start:        %s %s\n", summary.StartLat, summary.StartLng)
		fmt.Fprintf(w, "    End:          %s %s\n", summary.EndLat, summary.EndLng)
	}

	fmt.Fprintf(w, "%s\n\n", sep)
}

// formatThousands inserts comma separators into a non-negative integer's
// decimal rendering.
func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	return string(out)
}
