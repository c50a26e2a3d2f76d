package quality

// Kind classifies a Suggestion for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Suggestion is the text shown to the user next to the captured photo.
type Suggestion struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

const (
	TextTooDim       = "light too dim, move to a well-lit area"
	TextOverexposed  = "overexposed, avoid direct light"
	TextLowContrast  = "insufficient contrast, ensure subject is clearly visible"
	TextBlurry       = "image blurry, hold steady and retake"
	TextAcceptable   = "image quality acceptable"
	TextUnanalyzable = "unable to analyze image, please retake the photo"
)

// suggest applies the rules in priority order; the first match wins.
func suggest(brightness, contrast, clarity float64) Suggestion {
	switch {
	case brightness < MinBrightness:
		return Suggestion{Kind: KindWarning, Text: TextTooDim}
	case brightness > MaxBrightness:
		return Suggestion{Kind: KindWarning, Text: TextOverexposed}
	case contrast < MinContrast:
		return Suggestion{Kind: KindWarning, Text: TextLowContrast}
	case clarity < MinClarity:
		return Suggestion{Kind: KindWarning, Text: TextBlurry}
	default:
		return Suggestion{Kind: KindSuccess, Text: TextAcceptable}
	}
}

// Unanalyzable is shown when a frame could not be scored at all.
func Unanalyzable() Suggestion {
	return Suggestion{Kind: KindError, Text: TextUnanalyzable}
}
