package gpxtrack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/carburanti/pkg/geo"
)

const track = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Milano</name>
    <trkseg>
      <trkpt lat="45.4600" lon="9.1900"></trkpt>
      <trkpt lat="45.4601" lon="9.1900"></trkpt>
      <trkpt lat="45.4700" lon="9.1900"></trkpt>
      <trkpt lat="45.4800" lon="9.1900"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func collect(t *testing.T, s *Source) []geo.Point {
	t.Helper()
	ch, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	var out []geo.Point
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestReplay(t *testing.T) {
	s, err := Parse([]byte(track))
	require.NoError(t, err)

	got := collect(t, s)
	require.Len(t, got, 4)
	assert.Equal(t, geo.Point{Latitude: 45.46, Longitude: 9.19}, got[0])
	assert.Equal(t, s.Points(), got)
}

func TestMinDisplacement(t *testing.T) {
	s, err := Parse([]byte(track), WithMinDisplacement(100))
	require.NoError(t, err)
	// the second point is ~11 m from the first
	assert.Len(t, s.Points(), 3)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.gpx")
	require.NoError(t, os.WriteFile(path, []byte(track), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, s.Points(), 4)

	_, err = Open(filepath.Join(t.TempDir(), "missing.gpx"))
	assert.Error(t, err)
}

func TestEmptyTrack(t *testing.T) {
	_, err := Parse([]byte(`<?xml version="1.0"?><gpx version="1.1" creator="test"></gpx>`))
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	s, err := Parse([]byte(track))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)
	<-ch
	cancel()
	for range ch {
	}
}
