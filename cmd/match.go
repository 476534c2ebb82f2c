package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tracklab/stravatag/internal/geo"
	"github.com/tracklab/stravatag/internal/markers"
)

var matchCmd = &cobra.Command{
	Use:   "match <route> <track-file>",
	Short: "Check a track file against a route marker with both evaluator implementations",
	Long:  "Reads a track file with one lat,lon pair per line, evaluates it against the named route marker using the packed and the reference implementation, and reports whether they agree.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		routeName, trackPath := args[0], args[1]

		m, err := markers.Load(cfg.MarkersFile)
		if err != nil {
			return err
		}
		route, ok := m.Routes[routeName]
		if !ok {
			return eris.Errorf("route %q not found in %s", routeName, cfg.MarkersFile)
		}

		track, err := loadTrackFile(trackPath)
		if err != nil {
			return err
		}

		packed, err := geo.Select(geo.ModePacked)
		if err != nil {
			return err
		}
		reference, err := geo.Select(geo.ModeReference)
		if err != nil {
			return err
		}

		packedMatch := route.Matches(packed, track)
		referenceMatch := route.Matches(reference, track)

		fmt.Printf("route %q, %d points, %d blacklist, %d track samples\n",
			routeName, len(route.Points), len(route.Blacklist), len(track))
		fmt.Printf("  %-10s %v\n", packed.Name()+":", packedMatch)
		fmt.Printf("  %-10s %v\n", reference.Name()+":", referenceMatch)

		if packedMatch != referenceMatch {
			return eris.New("implementations disagree")
		}
		fmt.Println("implementations agree")
		return nil
	},
}

// loadTrackFile parses a file of "lat,lon" lines. Blank lines and lines
// starting with # are skipped.
func loadTrackFile(path string) (geo.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open track file %s", path)
	}
	defer f.Close()

	var track geo.Track
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lat, lon, ok := parseLatLon(text)
		if !ok {
			return nil, eris.Errorf("track file %s line %d: want lat,lon", path, line)
		}
		track = append(track, geo.Point{Lat: lat, Lon: lon})
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read track file %s", path)
	}
	return track, nil
}

func parseLatLon(text string) (lat, lon float64, ok bool) {
	latStr, lonStr, found := strings.Cut(text, ",")
	if !found {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
