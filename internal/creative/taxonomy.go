package creative

import "strings"

// Closed taxonomies the LLM output is normalized into. Values outside these
// lists are dropped.
var (
	Moods = []string{
		"Upbeat/Energetic",
		"Happy/Cheerful",
		"Inspiring/Uplifting",
		"Epic/Powerful",
		"Dramatic/Emotional",
		"Chill/Mellow",
		"Funny/Quirky",
		"Angry/Aggressive",
	}
	Genres = []string{
		"Cinematic",
		"Corporate",
		"Hip hop/Rap",
		"Rock",
		"Electronic",
		"Ambient",
		"Funk",
		"Classical",
	}
	Themes = []string{
		"Corporate",
		"Documentary",
		"Action",
		"Lifestyle",
		"Sports",
		"Drama",
		"Nature",
		"Technology",
	}
	Vocals = []string{
		"No Vocals",
		"Background Vocals",
		"Female Vocals",
		"Lead Vocals",
		"Vocal Samples",
		"Male Vocals",
	}
)

// NoVocals is the default vocals token.
const NoVocals = "No Vocals"

// instrumentSynonyms maps free-form LLM instrument strings to canonical
// taxonomy tokens. This table is advisory-path only and deliberately separate
// from the vocal table and the finalizer's alias table.
var instrumentSynonyms = map[string]string{
	"drums":            "Drum Kit (acoustic)",
	"drum set":         "Drum Kit (acoustic)",
	"drum kit":         "Drum Kit (acoustic)",
	"acoustic drums":   "Drum Kit (acoustic)",
	"kit":              "Drum Kit (acoustic)",
	"electronic drums": "Electronic Drums",
	"drum machine":     "Drum Machine",
	"808":              "808 Bass",
	"808s":             "808 Bass",
	"bass":             "Bass Guitar",
	"electric bass":    "Bass Guitar",
	"upright bass":     "Upright Bass",
	"double bass":      "Double Bass",
	"synth bass":       "Synth Bass",
	"guitar":           "Electric Guitar",
	"electric guitar":  "Electric Guitar",
	"guitars":          "Electric Guitar",
	"acoustic guitar":  "Acoustic Guitar",
	"classical guitar": "Classical Guitar",
	"nylon guitar":     "Classical Guitar",
	"piano":            "Piano",
	"grand piano":      "Piano",
	"keys":             "Keyboard",
	"keyboard":         "Keyboard",
	"keyboards":        "Keyboard",
	"electric piano":   "Electric Piano",
	"rhodes":           "Electric Piano",
	"wurlitzer":        "Electric Piano",
	"organ":            "Organ",
	"hammond":          "Organ",
	"hammond organ":    "Organ",
	"synth":            "Synth",
	"synths":           "Synth",
	"synthesizer":      "Synth",
	"synthesizers":     "Synth",
	"pads":             "Synth Pad",
	"synth pad":        "Synth Pad",
	"synth lead":       "Synth Lead",
	"lead synth":       "Synth Lead",
	"strings":          "Strings",
	"string section":   "Strings",
	"orchestra":        "Strings",
	"violin":           "Violin",
	"viola":            "Viola",
	"cello":            "Cello",
	"harp":             "Harp",
	"brass":            "Brass",
	"brass section":    "Brass",
	"horns":            "Brass",
	"horn section":     "Brass",
	"trumpet":          "Trumpet",
	"trombone":         "Trombone",
	"french horn":      "French Horn",
	"tuba":             "Tuba",
	"sax":              "Saxophone",
	"saxophone":        "Saxophone",
	"flute":            "Flute",
	"clarinet":         "Clarinet",
	"oboe":             "Oboe",
	"woodwinds":        "Woodwinds",
	"woodwind":         "Woodwinds",
	"percussion":       "Percussion",
	"congas":           "Congas",
	"bongos":           "Bongos",
	"shaker":           "Shaker",
	"tambourine":       "Tambourine",
	"claps":            "Claps",
	"handclaps":        "Claps",
	"vibraphone":       "Vibraphone",
	"marimba":          "Marimba",
	"xylophone":        "Xylophone",
	"glockenspiel":     "Glockenspiel",
	"bells":            "Tubular Bells",
	"turntables":       "Turntables",
	"scratching":       "Turntables",
	"sampler":          "Sampler",
	"sitar":            "Sitar",
	"banjo":            "Banjo",
	"mandolin":         "Mandolin",
	"ukulele":          "Ukulele",
	"accordion":        "Accordion",
	"harmonica":        "Harmonica",
	"timpani":          "Timpani",
	"taiko":            "Taiko",
	"steel drums":      "Steel Drums",
	"kalimba":          "Kalimba",
	"theremin":         "Theremin",
	"vocoder":          "Vocoder",
}

// vocalSynonyms maps free-form vocal strings to the vocals taxonomy. Kept
// separate from the instrument table.
var vocalSynonyms = map[string]string{
	"no vocals":         NoVocals,
	"none":              NoVocals,
	"instrumental":      NoVocals,
	"no vocal":          NoVocals,
	"lead vocals":       "Lead Vocals",
	"lead vocal":        "Lead Vocals",
	"vocals":            "Lead Vocals",
	"singer":            "Lead Vocals",
	"male vocals":       "Male Vocals",
	"male vocal":        "Male Vocals",
	"male singer":       "Male Vocals",
	"female vocals":     "Female Vocals",
	"female vocal":      "Female Vocals",
	"female singer":     "Female Vocals",
	"background vocals": "Background Vocals",
	"backing vocals":    "Background Vocals",
	"bgv":               "Background Vocals",
	"choir":             "Background Vocals",
	"vocal samples":     "Vocal Samples",
	"vocal sample":      "Vocal Samples",
	"vocal chops":       "Vocal Samples",
	"chopped vocals":    "Vocal Samples",
}

func taxonomySet(values []string) map[string]string {
	set := make(map[string]string, len(values))
	for _, value := range values {
		set[strings.ToLower(value)] = value
	}
	return set
}

var (
	moodSet  = taxonomySet(Moods)
	genreSet = taxonomySet(Genres)
	themeSet = taxonomySet(Themes)
	vocalSet = taxonomySet(Vocals)
)
