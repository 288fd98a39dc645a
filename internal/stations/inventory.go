package stations

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/seisview/gmv/internal/models"
)

// stationXML mirrors the subset of the FDSN StationXML schema needed for
// position resolution: network and station codes plus station coordinates.
type stationXML struct {
	XMLName  xml.Name `xml:"FDSNStationXML"`
	Networks []struct {
		Code     string `xml:"code,attr"`
		Stations []struct {
			Code      string  `xml:"code,attr"`
			Latitude  float64 `xml:"Latitude"`
			Longitude float64 `xml:"Longitude"`
		} `xml:"Station"`
	} `xml:"Network"`
}

// LoadInventory reads a StationXML file and returns positions keyed by
// "NET.STA".
func LoadInventory(path string) (map[string]models.Position, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open station inventory: %w", err)
	}

	var inv stationXML
	if err := xml.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("parse station inventory: %w", err)
	}

	positions := make(map[string]models.Position)
	for _, net := range inv.Networks {
		for _, sta := range net.Stations {
			key := strings.TrimSpace(net.Code) + "." + strings.TrimSpace(sta.Code)
			positions[key] = models.Position{
				Latitude:  sta.Latitude,
				Longitude: sta.Longitude,
			}
		}
	}

	if len(positions) == 0 {
		return nil, fmt.Errorf("station inventory %s contains no stations", path)
	}
	return positions, nil
}
