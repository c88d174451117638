package ingest

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/quakewatch/quakewatch/internal/geo"
)

// FDSN polls an fdsnws event service. It is a plain poller with the
// query rebuilt every cycle so the time window slides along.
type FDSN struct {
	*Poller
	base string
}

const (
	fdsnWindow = 12 * time.Hour
	fdsnMinMag = 3.0
)

func NewFDSN(resource string, env Env) (*FDSN, error) {
	base := "https://" + strings.TrimPrefix(resource, "fdsn://")
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("ingest: bad fdsn resource %q: %w", resource, err)
	}

	f := &FDSN{Poller: NewPoller(resource, env), base: base}
	f.Poller.url = f.query
	return f, nil
}

func (f *FDSN) query() string {
	start := time.Now().UTC().Add(-fdsnWindow)
	v := url.Values{}
	v.Set("format", "xml")
	v.Set("starttime", start.Format("2006-01-02T15:04:05"))
	v.Set("minmagnitude", strconv.FormatFloat(fdsnMinMag, 'f', 1, 64))
	v.Set("orderby", "time")
	return f.base + "/fdsnws/event/1/query?" + v.Encode()
}

// Stations resolves seismograph network/station pairs against an
// fdsnws station service, the text format. Lookups are memoized:
// stations do not move, but misses are retried after a while.
type Stations struct {
	base   string
	client *http.Client
	memo   *gocache.Cache
}

func NewStations(resource string, env Env) *Stations {
	return &Stations{
		base:   "https://" + strings.TrimPrefix(resource, "fdsn://"),
		client: env.client(),
		memo:   gocache.New(24*time.Hour, time.Hour),
	}
}

func (s *Stations) Station(network, station string) (geo.Coords, bool) {
	key := network + "." + station
	if hit, found := s.memo.Get(key); found {
		coords, ok := hit.(geo.Coords)
		return coords, ok
	}

	coords, ok := s.lookup(network, station)
	if ok {
		s.memo.Set(key, coords, gocache.NoExpiration)
	} else {
		// Cache the miss briefly so a noisy pick stream does not
		// hammer the station service.
		s.memo.Set(key, nil, 10*time.Minute)
	}
	return coords, ok
}

func (s *Stations) lookup(network, station string) (geo.Coords, bool) {
	v := url.Values{}
	v.Set("network", network)
	v.Set("station", station)
	v.Set("level", "station")
	v.Set("format", "text")

	resp, err := s.client.Get(s.base + "/fdsnws/station/1/query?" + v.Encode())
	if err != nil {
		slog.Warn("station lookup failed", "network", network, "station", station, "error", err)
		return geo.Coords{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return geo.Coords{}, false
	}

	// Text format: Network|Station|Latitude|Longitude|Elevation|...
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 4 {
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		return geo.New(lat, lon, 0), true
	}
	return geo.Coords{}, false
}
