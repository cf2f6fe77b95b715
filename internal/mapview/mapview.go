// Package mapview renders the travel collection as circle markers on a tile
// map and turns pointer events into record selection, editing and creation.
//
// The mapping library itself sits behind the Library/Map contract and is
// obtained at runtime through a Loader, so the View can wait for it to
// become available and report a terminal failure if it never does.
package mapview

import (
	"context"
	"errors"
)

// ErrNotLoaded is returned by a Loader whose library is not available yet.
// Init retries it; any other Loader error fails immediately.
var ErrNotLoaded = errors.New("mapview: map library not loaded")

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CircleStyle describes how a circle marker is drawn.
type CircleStyle struct {
	Radius      int     `json:"radius"`
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// LayerID identifies a layer added to a Map.
type LayerID string

// PopupID identifies an open popup.
type PopupID string

// PopupContent is what the record popup shows.
type PopupContent struct {
	RecordID string `json:"recordId"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Feelings string `json:"feelings"`
}

// Library creates maps.
type Library interface {
	NewMap(center LatLng, zoom int) (Map, error)
}

// Map is one live map instance.
type Map interface {
	// OnClick registers the handler for clicks on the map background.
	OnClick(fn func(at LatLng))
	AddCircleMarker(at LatLng, style CircleStyle, onClick func()) LayerID
	RemoveLayer(id LayerID)
	// OpenPopup opens a popup, closing any popup already open.
	OpenPopup(at LatLng, content PopupContent) PopupID
	ClosePopup(id PopupID)
	// Remove releases the map. It must not be used afterwards.
	Remove()
}

// Surface is implemented by maps whose pointer events are delivered by the
// host rather than by the library itself. Dispatch methods report whether
// the event reached a handler.
type Surface interface {
	DispatchClick(at LatLng) bool
	DispatchLayerClick(id LayerID) bool
}

// Snapshotter is implemented by maps that can describe what they currently
// draw in a serializable form.
type Snapshotter interface {
	Snapshot() any
}

// Loader obtains the mapping library.
type Loader interface {
	Load(ctx context.Context) (Library, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Library, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (Library, error) { return f(ctx) }

// Status is the lifecycle state of the map.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Marker styles.
const (
	SelectedColor  = "#ef4444"
	MarkerColor    = "#3b82f6"
	SelectedRadius = 8
	MarkerRadius   = 6
)

// StyleFor returns the circle style for a record marker.
func StyleFor(selected bool) CircleStyle {
	s := CircleStyle{
		Radius:      MarkerRadius,
		Color:       MarkerColor,
		FillColor:   MarkerColor,
		Weight:      2,
		Opacity:     1,
		FillOpacity: 0.8,
	}
	if selected {
		s.Radius = SelectedRadius
		s.Color = SelectedColor
		s.FillColor = SelectedColor
	}
	return s
}
