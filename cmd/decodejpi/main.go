// decodejpi — J.P. Instruments EDM flight-log decoder (Go)
//
// Lists, decodes, and exports .JPI engine-data-monitor flight logs to CSV.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jpi-edm/decoder/internal/xlog"
	"github.com/jpi-edm/decoder/jpi"
)

func loadDecoder(path string, profilePath string) (*jpi.Decoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := jpi.NewDecoder()
	if profilePath != "" {
		table, err := jpi.LoadSensorTableFile(profilePath)
		if err != nil {
			return nil, fmt.Errorf("loading sensor profile: %w", err)
		}
		d.SetSensorTable(table)
	}
	if err := d.ParseFile(data); err != nil {
		return nil, err
	}
	return d, nil
}

func listFlights(d *jpi.Decoder, asJSON bool) error {
	listings, err := d.ListFlights()
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	}
	for _, l := range listings {
		fmt.Printf("%6d  %-10s %-8s  interval=%ds  size=%d\n", l.ID, l.Date, l.Time, l.Interval, l.Size)
	}
	return nil
}

func writeFlightCSV(d *jpi.Decoder, id int, outPath string) error {
	table, err := d.DecodeFlight(id)
	if err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := jpi.WriteCSV(f, table); err != nil {
		return err
	}
	fmt.Printf("  CSV: %s (%d rows)\n", outPath, len(table.Rows))
	return nil
}

func printFlightInfo(d *jpi.Decoder, id int) error {
	listings, err := d.ListFlights()
	if err != nil {
		return err
	}
	var listing jpi.FlightListing
	found := false
	for _, l := range listings {
		if l.ID == id {
			listing = l
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("flight %d not found", id)
	}
	summaries, err := d.SummarizeFlights()
	if err != nil {
		return err
	}
	var summary jpi.FlightSummary
	for _, s := range summaries {
		if s.ID == id {
			summary = s
			break
		}
	}
	jpi.PrintFlightInfo(os.Stdout, listing, summary)
	return nil
}

func flightOutputPath(inputPath string, id int, dir string) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	name := fmt.Sprintf("%s.flt%d.csv", stem, id)
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func run() int {
	fs := flag.NewFlagSet("decodejpi", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "emit the flight list as JSON")
	info := fs.Bool("info", false, "print a summary for each decoded flight instead of writing CSV")
	outDir := fs.String("out-dir", "", "directory for multi-flight CSV output (default: current directory)")
	profilePath := fs.String("profile", "", "path to an alternate sensor-mapping YAML profile")
	logDir := fs.String("log-dir", "", "directory for rotating decode logs (default: stderr only)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: decodejpi [options] <file.JPI> [id...] [outCsv|outDir]\n\n")
		fmt.Fprintf(os.Stderr, "Decode J.P. Instruments EDM flight logs into CSV.\n\n")
		fmt.Fprintf(os.Stderr, "  decodejpi <file>                 list flights\n")
		fmt.Fprintf(os.Stderr, "  decodejpi <file> <id> [outCsv]   write one flight's CSV\n")
		fmt.Fprintf(os.Stderr, "  decodejpi <file> <id> <id>...    write each flight's CSV to --out-dir\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	if *logDir != "" {
		logPath := filepath.Join(*logDir, "decodejpi.log")
		xlog.UseRotatingFile(logPath, 10, 5, 28, true)
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}

	inputPath := fs.Arg(0)
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: file not found: %s\n", inputPath)
		return 1
	}

	d, err := loadDecoder(inputPath, *profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	rest := fs.Args()[1:]
	if len(rest) == 0 {
		if err := listFlights(d, *asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	ids, trailing := splitTrailingPath(rest)
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no valid flight id in %v\n", rest)
		return 1
	}

	if *info {
		for _, id := range ids {
			if err := printFlightInfo(d, id); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
		}
		return 0
	}

	if len(ids) == 1 {
		outPath := trailing
		if outPath == "" {
			outPath = flightOutputPath(inputPath, ids[0], "")
		}
		if err := writeFlightCSV(d, ids[0], outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	dir := *outDir
	if trailing != "" {
		dir = trailing
	}
	if dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			dir = ""
		}
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return writeFlightCSV(d.Clone(), id, flightOutputPath(inputPath, id, dir))
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// splitTrailingPath separates a trailing output path (directory or CSV
// file, which never parses as an integer) from the leading run of flight
// ids in args.
func splitTrailingPath(args []string) (ids []int, trailing string) {
	for i, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			if i == len(args)-1 {
				trailing = a
				return ids, trailing
			}
			return ids, trailing
		}
		ids = append(ids, id)
	}
	return ids, trailing
}

func main() {
	os.Exit(run())
}
