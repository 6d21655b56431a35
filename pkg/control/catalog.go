package control

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SkillLevel is the self-reported skill of a client.
type SkillLevel int

const (
	SkillNotSet SkillLevel = iota
	SkillBeginner
	SkillIntermediate
	SkillExpert
)

// SkillLevelName returns the display name for level.
func SkillLevelName(level SkillLevel) string {
	switch level {
	case SkillBeginner:
		return "Beginner"
	case SkillIntermediate:
		return "Intermediate"
	case SkillExpert:
		return "Expert"
	default:
		return "None"
	}
}

var instrumentNames = []string{
	"None",
	"Drum Set",
	"Djembe",
	"Electric Guitar",
	"Acoustic Guitar",
	"Bass Guitar",
	"Keyboard",
	"Synthesizer",
	"Grand Piano",
	"Accordion",
	"Vocal",
	"Microphone",
	"Harmonica",
	"Trumpet",
	"Trombone",
	"French Horn",
	"Tuba",
	"Saxophone",
	"Clarinet",
	"Flute",
	"Violin",
	"Cello",
	"Double Bass",
	"Recorder",
	"Streamer",
	"Listener",
	"Guitar+Vocal",
	"Keyboard+Vocal",
	"Bodhran",
	"Bassoon",
	"Oboe",
	"Harp",
	"Viola",
	"Congas",
	"Bongo",
	"Vocal Bass",
	"Vocal Tenor",
	"Vocal Alto",
	"Vocal Soprano",
	"Banjo",
	"Mandolin",
	"Ukulele",
	"Bass Ukulele",
	"Vocal Baritone",
	"Vocal Lead",
	"Mountain Dulcimer",
	"Scratching",
	"Rapping",
	"Vibraphone",
	"Conductor",
}

// InstrumentName returns the display name for an instrument id.
func InstrumentName(id int) string {
	if id < 0 || id >= len(instrumentNames) {
		return "Unknown"
	}
	return instrumentNames[id]
}

// CountryName resolves an ISO 3166-1 numeric country code to its English
// name. Zero and unrecognised codes yield "Unknown". These are not the locale
// enum ids some desktop clients send (82 there is Germany, 276 here), so
// such clients must translate before reporting a country.
func CountryName(code int) string {
	if code <= 0 || code > 999 {
		return "Unknown"
	}
	region, err := language.ParseRegion(fmt.Sprintf("%03d", code))
	if err != nil {
		return "Unknown"
	}
	name := display.English.Regions().Name(region)
	if name == "" {
		return "Unknown"
	}
	return name
}
