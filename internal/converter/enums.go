package converter

import (
	"fmt"
	"strconv"
	"strings"
)

// HighwayType is an OSM highway=* value the OSM converter can keep.
type HighwayType string

var HighwayTypes = []HighwayType{
	"motorway", "motorway_link", "trunk", "trunk_link", "primary", "primary_link",
	"secondary", "secondary_link", "tertiary", "tertiary_link", "unclassified",
	"residential", "living_street", "service", "pedestrian", "track", "bus_guideway",
	"footway", "bridleway", "steps", "corridor", "path", "sidewalk", "cycleway",
}

func ParseHighwayType(s string) (HighwayType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, h := range HighwayTypes {
		if string(h) == s {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown highway type %q", s)
}

// FRC is a functional road class as used by GIP.
type FRC int

var frcNames = map[FRC]string{
	-1:  "NOT_APPLICABLE",
	0:   "MOTORWAY_FREEWAY_OR_OTHER_MAJOR_MOTORWAY",
	1:   "MAJOR_ROAD_LESS_IMPORTANT_THAN_MOTORWAY",
	2:   "OTHER_MAJOR_ROAD",
	3:   "SECONDARY_ROAD",
	4:   "LOCAL_CONNECTING_ROAD",
	5:   "LOCAL_ROAD_OF_HIGH_IMPORTANCE",
	6:   "LOCAL_ROAD",
	7:   "LOCAL_ROAD_OF_MINOR_IMPORTANCE",
	8:   "SONSTIGE_STRASSEN",
	10:  "RAD_FUSSWEG",
	11:  "WIRTSCHAFTSWEG",
	20:  "FERNVERKEHRSGLEIS",
	24:  "STRASSENBAHNGLEIS",
	25:  "U_BAHN_GLEIS",
	31:  "FAEHRE",
	45:  "TREPPE",
	46:  "ROLLTREPPE",
	47:  "AUFZUG",
	48:  "RAMPE",
	101: "FUSSWEG_OHNE_ANZEIGE",
	102: "FUSSWEGPASSAGE",
	103: "SEILBAHN_UND_SONSTIGE",
	104: "SONDERELEMENT",
	105: "ALMAUFSCHLIESSUNGSWEG",
	106: "FORSTAUFSCHLIESSUNGSWEG",
	107: "HOFZUFAHRTEN",
	108: "GUETERWEG",
}

func (f FRC) String() string {
	if n, ok := frcNames[f]; ok {
		return n
	}
	return strconv.Itoa(int(f))
}

// ParseFRC accepts the numeric value or the name.
func ParseFRC(s string) (FRC, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := frcNames[FRC(n)]; ok {
			return FRC(n), nil
		}
		return 0, fmt.Errorf("unknown functional road class %d", n)
	}
	for f, name := range frcNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown functional road class %q", s)
}

// Access is a GIP access type.
type Access int

var accessNames = map[Access]string{
	-1: "NONE",
	1:  "PEDESTRIAN",
	2:  "BIKE",
	3:  "PRIVATE_CAR",
	4:  "PUBLIC_BUS",
	5:  "RAILWAY",
	6:  "TRAM",
	7:  "SUBWAY",
	8:  "FERRY_BOAT",
	9:  "HIGH_OCCUPATION_CAR",
	10: "TRUCK",
	11: "TAXI",
	12: "EMERGENCY_VEHICLE",
	13: "MOTOR_COACH",
	14: "TROLLY_BUS",
	15: "MOTORCYCLE",
	16: "RACK_RAILWAY",
	17: "CABLE_RAILWAY",
	18: "CAR_FERRY",
	19: "CAMPER",
	20: "COMBUSTIBLES",
	21: "HAZARDOUS_TO_WATER",
	22: "GARBAGE_COLLECTION_VEHICLE",
	23: "ELECTRIC_CAR",
}

func (a Access) String() string {
	if n, ok := accessNames[a]; ok {
		return n
	}
	return strconv.Itoa(int(a))
}

// ParseAccess accepts the name or the numeric value.
func ParseAccess(s string) (Access, error) {
	s = strings.TrimSpace(s)
	for a, name := range accessNames {
		if strings.EqualFold(name, s) {
			return a, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := accessNames[Access(n)]; ok {
			return Access(n), nil
		}
	}
	return 0, fmt.Errorf("unknown access type %q", s)
}
