package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"

	"github.com/Zerofisher/kismetdb/pkg/model"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlDocument struct {
	XMLName xml.Name       `xml:"kml"`
	Xmlns   string         `xml:"xmlns,attr"`
	Name    string         `xml:"Document>name"`
	Marks   []kmlPlacemark `xml:"Document>Placemark"`
}

type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description,omitempty"`
	Coordinates string `xml:"Point>coordinates"`
}

// Placemark is one plotted device.
type Placemark struct {
	Name string
	MAC  string
	Lon  float64
	Lat  float64
	Alt  float64
}

// KMLWriter collects device locations and writes them as a KML document.
type KMLWriter struct {
	w         io.Writer
	title     string
	strongest bool
	ssid      *regexp.Regexp
	points    []Placemark
}

// NewKMLWriter creates a KML writer with the given document title.
func NewKMLWriter(w io.Writer, title string) *KMLWriter {
	if title == "" {
		title = "Kismet"
	}
	return &KMLWriter{w: w, title: title}
}

// SetStrongestPoint plots devices at their peak signal location instead
// of their average location.
func (k *KMLWriter) SetStrongestPoint(v bool) {
	k.strongest = v
}

// SetSSID restricts output to devices advertising an SSID matching re.
func (k *KMLWriter) SetSSID(re *regexp.Regexp) {
	k.ssid = re
}

// WriteRow adds the device of one devices row. Devices without a usable
// location are skipped; the return value reports whether it was plotted.
func (k *KMLWriter) WriteRow(row *model.Row) (bool, error) {
	dev, err := DecodeDevice(row)
	if err != nil {
		return false, err
	}
	if k.ssid != nil && !MatchSSID(dev, k.ssid) {
		return false, nil
	}
	pm, ok := DevicePlacemark(dev, k.strongest)
	if !ok {
		return false, nil
	}
	k.points = append(k.points, pm)
	return true, nil
}

// Count returns the number of plotted devices.
func (k *KMLWriter) Count() int {
	return len(k.points)
}

// Close writes the document.
func (k *KMLWriter) Close() error {
	doc := kmlDocument{Xmlns: kmlNamespace, Name: k.title}
	for _, p := range k.points {
		doc.Marks = append(doc.Marks, kmlPlacemark{
			Name:        p.Name,
			Description: p.MAC,
			Coordinates: fmt.Sprintf("%g,%g,%g", p.Lon, p.Lat, p.Alt),
		})
	}
	if _, err := io.WriteString(k.w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(k.w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(k.w, "\n")
	return err
}

// DevicePlacemark extracts the plotted location and display name of a
// decoded device record.
func DevicePlacemark(dev map[string]any, strongest bool) (Placemark, bool) {
	var loc map[string]any
	if strongest {
		loc = subtree(dev, "kismet.device.base.signal", "kismet.common.signal.peak_loc")
	} else {
		loc = subtree(dev, "kismet.device.base.location", "kismet.common.location.avg_loc")
	}
	if loc == nil {
		return Placemark{}, false
	}
	lon, ok1 := loc["kismet.common.location.lon"].(float64)
	lat, ok2 := loc["kismet.common.location.lat"].(float64)
	if !ok1 || !ok2 {
		return Placemark{}, false
	}
	alt, _ := loc["kismet.common.location.alt"].(float64)
	mac, _ := dev["kismet.device.base.macaddr"].(string)

	name, _ := dev["kismet.device.base.name"].(string)
	if name == "" {
		if d11 := subtree(dev, "dot11.device"); d11 != nil {
			name, _ = d11["dot11.device.last_beaconed_ssid"].(string)
		}
	}
	if name == "" {
		name = mac
	}
	return Placemark{Name: name, MAC: mac, Lon: lon, Lat: lat, Alt: alt}, true
}

func subtree(m map[string]any, path ...string) map[string]any {
	cur := m
	for _, p := range path {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
