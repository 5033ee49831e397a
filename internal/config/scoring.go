package config

// ScoringConfig holds the tunable constants for provider result ranking.
// The date bands lean mid-2010s because reissue patterns in the target
// domain make neither the oldest nor the newest record the most canonical;
// the bands are configuration, not baked-in domain knowledge.
type ScoringConfig struct {
	// Title relevance
	DerivativePenalty float64 `yaml:"derivative_penalty"` // default: -500
	UnrelatedPenalty  float64 `yaml:"unrelated_penalty"`  // default: -1000
	ExactTitleBonus   float64 `yaml:"exact_title_bonus"`  // default: 100

	// Edition signal
	EditionNumberWeight float64 `yaml:"edition_number_weight"` // default: 10
	RevisedBonus        float64 `yaml:"revised_bonus"`         // default: 5

	// Date bands
	Date2020Plus float64 `yaml:"date_2020_plus"` // default: 8
	Date2015to19 float64 `yaml:"date_2015_2019"` // default: 7
	Date2010to14 float64 `yaml:"date_2010_2014"` // default: 10
	Date2000s    float64 `yaml:"date_2000s"`     // default: 5
	DateOlder    float64 `yaml:"date_older"`     // default: 2

	// Binding scores
	BindingHardcover    float64 `yaml:"binding_hardcover"`    // default: 50
	BindingPaperback    float64 `yaml:"binding_paperback"`    // default: 40
	BindingKindle       float64 `yaml:"binding_kindle"`       // default: 30
	BindingEbook        float64 `yaml:"binding_ebook"`        // default: 25
	BindingAudio        float64 `yaml:"binding_audio"`        // default: 15
	BindingAudioCD      float64 `yaml:"binding_audio_cd"`     // default: 10
	BindingMP3CD        float64 `yaml:"binding_mp3_cd"`       // default: 5
	BindingEmpty        float64 `yaml:"binding_empty"`        // default: 45
	BindingUnrecognized float64 `yaml:"binding_unrecognized"` // default: 20
}

// ApplyDefaults fills in zero-valued scoring constants.
func (s *ScoringConfig) ApplyDefaults() {
	if s.DerivativePenalty == 0 {
		s.DerivativePenalty = -500
	}
	if s.UnrelatedPenalty == 0 {
		s.UnrelatedPenalty = -1000
	}
	if s.ExactTitleBonus == 0 {
		s.ExactTitleBonus = 100
	}
	if s.EditionNumberWeight == 0 {
		s.EditionNumberWeight = 10
	}
	if s.RevisedBonus == 0 {
		s.RevisedBonus = 5
	}
	if s.Date2020Plus == 0 {
		s.Date2020Plus = 8
	}
	if s.Date2015to19 == 0 {
		s.Date2015to19 = 7
	}
	if s.Date2010to14 == 0 {
		s.Date2010to14 = 10
	}
	if s.Date2000s == 0 {
		s.Date2000s = 5
	}
	if s.DateOlder == 0 {
		s.DateOlder = 2
	}
	if s.BindingHardcover == 0 {
		s.BindingHardcover = 50
	}
	if s.BindingPaperback == 0 {
		s.BindingPaperback = 40
	}
	if s.BindingKindle == 0 {
		s.BindingKindle = 30
	}
	if s.BindingEbook == 0 {
		s.BindingEbook = 25
	}
	if s.BindingAudio == 0 {
		s.BindingAudio = 15
	}
	if s.BindingAudioCD == 0 {
		s.BindingAudioCD = 10
	}
	if s.BindingMP3CD == 0 {
		s.BindingMP3CD = 5
	}
	if s.BindingEmpty == 0 {
		s.BindingEmpty = 45
	}
	if s.BindingUnrecognized == 0 {
		s.BindingUnrecognized = 20
	}
}
