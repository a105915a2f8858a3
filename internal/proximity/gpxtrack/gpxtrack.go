// Package gpxtrack replays the points of a GPX file as location updates.
package gpxtrack

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/rubiojr/carburanti/pkg/geo"
)

type Option func(*Source)

// WithInterval sets the delay between two emitted points.
func WithInterval(d time.Duration) Option {
	return func(s *Source) { s.interval = d }
}

// WithMinDisplacement drops points closer than meters to the previously
// kept point, like a platform that only reports significant moves.
func WithMinDisplacement(meters float64) Option {
	return func(s *Source) { s.minDisplacement = meters }
}

type Source struct {
	points          []geo.Point
	interval        time.Duration
	minDisplacement float64
}

// Open parses the GPX file at path.
func Open(path string, opts ...Option) (*Source, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return fromGPX(g, opts...)
}

// Parse reads a GPX document from data.
func Parse(data []byte, opts ...Option) (*Source, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing gpx")
	}
	return fromGPX(g, opts...)
}

func fromGPX(g *gpx.GPX, opts ...Option) (*Source, error) {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}

	var last *gpx.GPXPoint
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for i := range segment.Points {
				p := &segment.Points[i]
				if last != nil && s.minDisplacement > 0 &&
					gpx.Distance2D(last.Latitude, last.Longitude, p.Latitude, p.Longitude, true) < s.minDisplacement {
					continue
				}
				s.points = append(s.points, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude})
				last = p
			}
		}
	}

	if len(s.points) == 0 {
		return nil, errors.New("gpx has no track points")
	}
	return s, nil
}

// Points returns the positions that will be replayed.
func (s *Source) Points() []geo.Point {
	out := make([]geo.Point, len(s.points))
	copy(out, s.points)
	return out
}

// Subscribe emits every point in order and closes the channel at the end of
// the track or when ctx is done.
func (s *Source) Subscribe(ctx context.Context) (<-chan geo.Point, error) {
	out := make(chan geo.Point)
	go func() {
		defer close(out)
		for i, p := range s.points {
			if i > 0 && s.interval > 0 {
				select {
				case <-time.After(s.interval):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
