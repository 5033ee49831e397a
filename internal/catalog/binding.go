package catalog

import "strings"

// Canonical binding categories.
const (
	BindingHardcover  = "hardcover"
	BindingPaperback  = "paperback"
	BindingEbook      = "ebook"
	BindingAudiobook  = "audiobook"
	BindingMassMarket = "mass market paperback"
	BindingUnknown    = "unknown"
)

// bindingSynonyms maps lowercased provider vocabulary to canonical
// categories. Longer phrases are checked before their substrings.
var bindingSynonyms = []struct {
	label     string
	canonical string
}{
	{"mass market paperback", BindingMassMarket},
	{"mass market", BindingMassMarket},
	{"mmpb", BindingMassMarket},
	{"trade paperback", BindingPaperback},
	{"hard cover", BindingHardcover},
	{"hardcover", BindingHardcover},
	{"hardback", BindingHardcover},
	{"hc", BindingHardcover},
	{"soft cover", BindingPaperback},
	{"softcover", BindingPaperback},
	{"paperback", BindingPaperback},
	{"pb", BindingPaperback},
	{"kindle edition", BindingEbook},
	{"kindle", BindingEbook},
	{"e-book", BindingEbook},
	{"ebook", BindingEbook},
	{"epub", BindingEbook},
	{"digital", BindingEbook},
	{"audio book", BindingAudiobook},
	{"audiobook", BindingAudiobook},
	{"mp3 cd", BindingAudiobook},
	{"audio cd", BindingAudiobook},
	{"audible", BindingAudiobook},
	{"audio", BindingAudiobook},
	{"cd", BindingAudiobook},
}

// NormalizeBinding maps a raw binding/format label to its canonical
// category. Unrecognized non-empty labels pass through lowercased so
// provider vocabulary is preserved; empty input resolves to "unknown".
// The function is idempotent.
func NormalizeBinding(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return BindingUnknown
	}
	for _, syn := range bindingSynonyms {
		if s == syn.label {
			return syn.canonical
		}
	}
	for _, syn := range bindingSynonyms {
		// Short codes like "pb", "hc", "cd" only match exactly.
		if len(syn.label) >= 4 && strings.Contains(s, syn.label) {
			return syn.canonical
		}
	}
	return s
}

// audioMarkers identify audio-format records before normalization. Checked
// as substrings of the lowercased raw label.
var audioMarkers = []string{
	"audiobook", "audio book", "audio cd", "mp3 cd", "audible", "audio",
}

// IsAudioBinding reports whether a raw binding label denotes an audio
// format. A bare "cd" counts; "cd-rom" does not.
func IsAudioBinding(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return false
	}
	if s == "cd" {
		return true
	}
	for _, m := range audioMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// bindingRank orders bindings for display inside an edition group.
var bindingRank = map[string]int{
	BindingHardcover:  0,
	BindingPaperback:  1,
	BindingEbook:      2,
	BindingAudiobook:  3,
	BindingMassMarket: 4,
}

// BindingRank returns the display preference for a canonical binding;
// anything outside the fixed preference list sorts after it, alphabetically.
func BindingRank(canonical string) int {
	if r, ok := bindingRank[canonical]; ok {
		return r
	}
	return len(bindingRank)
}
