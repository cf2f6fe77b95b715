// Package scene is an in-process mapview.Library that records what a map
// draws as a serializable Scene. The page ships the scene to the browser,
// which draws it with Leaflet and posts pointer events back through the
// mapview.Surface methods.
package scene

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkordes/travel-journal/internal/mapview"
)

// Tile defaults.
const (
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "© OpenStreetMap contributors"
	DefaultMaxZoom     = 19
)

// Marker is one circle marker.
type Marker struct {
	LayerID mapview.LayerID     `json:"layerId"`
	At      mapview.LatLng      `json:"at"`
	Style   mapview.CircleStyle `json:"style"`
}

// Popup is the open popup.
type Popup struct {
	ID      mapview.PopupID      `json:"id"`
	At      mapview.LatLng       `json:"at"`
	Content mapview.PopupContent `json:"content"`
}

// Scene is everything a map draws.
type Scene struct {
	Center      mapview.LatLng `json:"center"`
	Zoom        int            `json:"zoom"`
	MaxZoom     int            `json:"maxZoom"`
	TileURL     string         `json:"tileUrl"`
	Attribution string         `json:"attribution"`
	Markers     []Marker       `json:"markers"`
	Popup       *Popup         `json:"popup,omitempty"`
}

// Config configures the Library and its Loader.
type Config struct {
	TileURL     string
	Attribution string
	MaxZoom     int
	// CheckTiles makes the Loader check the tile server before handing out
	// the Library.
	CheckTiles bool
	Client     *http.Client
}

func (c Config) withDefaults() Config {
	if c.TileURL == "" {
		c.TileURL = DefaultTileURL
	}
	if c.Attribution == "" {
		c.Attribution = DefaultAttribution
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = DefaultMaxZoom
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	return c
}

// Library creates scene maps.
type Library struct {
	cfg Config
}

// NewLibrary returns a Library drawing tiles from cfg.TileURL.
func NewLibrary(cfg Config) *Library {
	return &Library{cfg: cfg.withDefaults()}
}

// NewMap implements mapview.Library.
func (l *Library) NewMap(center mapview.LatLng, zoom int) (mapview.Map, error) {
	if zoom < 0 || zoom > l.cfg.MaxZoom {
		return nil, fmt.Errorf("scene.Library.NewMap: zoom %d outside [0, %d]", zoom, l.cfg.MaxZoom)
	}
	return &Map{
		center: center,
		zoom:   zoom,
		cfg:    l.cfg,
		layers: make(map[mapview.LayerID]*layer),
	}, nil
}

// NewLoader returns a Loader handing out a Library for cfg. With cfg.CheckTiles
// set, it first requests tile 0/0/0 and reports an unreachable tile server
// as mapview.ErrNotLoaded.
func NewLoader(cfg Config) mapview.Loader {
	cfg = cfg.withDefaults()
	return mapview.LoaderFunc(func(ctx context.Context) (mapview.Library, error) {
		if cfg.CheckTiles {
			if err := checkTiles(ctx, cfg.Client, cfg.TileURL); err != nil {
				return nil, err
			}
		}
		return NewLibrary(cfg), nil
	})
}

// TileURL expands a Leaflet tile template for one tile.
func TileURL(tmpl string, z, x, y int) string {
	return strings.NewReplacer(
		"{s}", "a",
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{r}", "",
	).Replace(tmpl)
}

func checkTiles(ctx context.Context, client *http.Client, tmpl string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, TileURL(tmpl, 0, 0, 0), nil)
	if err != nil {
		return fmt.Errorf("scene.checkTiles: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: tile server: %v", mapview.ErrNotLoaded, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: tile server answered %s", mapview.ErrNotLoaded, resp.Status)
	}
	return nil
}

type layer struct {
	marker  Marker
	onClick func()
}

// Map is a mapview.Map and mapview.Surface. It is not safe for concurrent
// use; mapview.View serializes access.
type Map struct {
	center mapview.LatLng
	zoom   int
	cfg    Config

	onClick func(mapview.LatLng)
	layers  map[mapview.LayerID]*layer
	order   []mapview.LayerID
	nextID  int
	popup   *Popup
	removed bool
}

var (
	_ mapview.Map         = (*Map)(nil)
	_ mapview.Surface     = (*Map)(nil)
	_ mapview.Snapshotter = (*Map)(nil)
)

// OnClick implements mapview.Map.
func (m *Map) OnClick(fn func(at mapview.LatLng)) { m.onClick = fn }

// AddCircleMarker implements mapview.Map.
func (m *Map) AddCircleMarker(at mapview.LatLng, style mapview.CircleStyle, onClick func()) mapview.LayerID {
	id := m.newID("layer")
	m.layers[id] = &layer{
		marker:  Marker{LayerID: id, At: at, Style: style},
		onClick: onClick,
	}
	m.order = append(m.order, id)
	return id
}

// RemoveLayer implements mapview.Map.
func (m *Map) RemoveLayer(id mapview.LayerID) {
	if _, ok := m.layers[id]; !ok {
		return
	}
	delete(m.layers, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// OpenPopup implements mapview.Map.
func (m *Map) OpenPopup(at mapview.LatLng, content mapview.PopupContent) mapview.PopupID {
	id := mapview.PopupID(m.newID("popup"))
	m.popup = &Popup{ID: id, At: at, Content: content}
	return id
}

// ClosePopup implements mapview.Map.
func (m *Map) ClosePopup(id mapview.PopupID) {
	if m.popup != nil && m.popup.ID == id {
		m.popup = nil
	}
}

// Remove implements mapview.Map.
func (m *Map) Remove() {
	m.removed = true
	m.onClick = nil
	m.layers = map[mapview.LayerID]*layer{}
	m.order = nil
	m.popup = nil
}

// DispatchClick implements mapview.Surface.
func (m *Map) DispatchClick(at mapview.LatLng) bool {
	if m.removed || m.onClick == nil {
		return false
	}
	m.onClick(at)
	return true
}

// DispatchLayerClick implements mapview.Surface.
func (m *Map) DispatchLayerClick(id mapview.LayerID) bool {
	if m.removed {
		return false
	}
	l, ok := m.layers[id]
	if !ok || l.onClick == nil {
		return false
	}
	l.onClick()
	return true
}

// Snapshot implements mapview.Snapshotter.
func (m *Map) Snapshot() any { return m.Scene() }

// Scene returns a copy of what the map draws, markers in insertion order.
func (m *Map) Scene() Scene {
	s := Scene{
		Center:      m.center,
		Zoom:        m.zoom,
		MaxZoom:     m.cfg.MaxZoom,
		TileURL:     m.cfg.TileURL,
		Attribution: m.cfg.Attribution,
		Markers:     make([]Marker, 0, len(m.order)),
	}
	for _, id := range m.order {
		s.Markers = append(s.Markers, m.layers[id].marker)
	}
	if m.popup != nil {
		p := *m.popup
		s.Popup = &p
	}
	return s
}

func (m *Map) newID(prefix string) mapview.LayerID {
	m.nextID++
	return mapview.LayerID(prefix + "-" + strconv.Itoa(m.nextID))
}
