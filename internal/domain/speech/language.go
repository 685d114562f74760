package speech

import "strings"

const LanguageEnglish = "en"

// HindiPrefix is the tag prefix used by the Indian-script voice heuristic.
const HindiPrefix = "hi"

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

var languages = []Language{
	{Code: "en", Name: "English", Tag: "en-US"},
	{Code: "hi", Name: "हिंदी (Hindi)", Tag: "hi-IN"},
	{Code: "te", Name: "తెలుగు (Telugu)", Tag: "te-IN"},
	{Code: "ta", Name: "தமிழ் (Tamil)", Tag: "ta-IN"},
	{Code: "bn", Name: "বাংলা (Bengali)", Tag: "bn-IN"},
	{Code: "kn", Name: "ಕನ್ನಡ (Kannada)", Tag: "kn-IN"},
	{Code: "ml", Name: "മലയാളം (Malayalam)", Tag: "ml-IN"},
	{Code: "mr", Name: "मराठी (Marathi)", Tag: "mr-IN"},
	{Code: "gu", Name: "ગુજરાતી (Gujarati)", Tag: "gu-IN"},
	{Code: "pa", Name: "ਪੰਜਾਬੀ (Punjabi)", Tag: "pa-IN"},
	{Code: "or", Name: "ଓଡ଼ିଆ (Odia)", Tag: "or-IN"},
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LookupLanguage finds a supported language by its short code.
func LookupLanguage(code string) (Language, bool) {
	code = NormalizeLanguage(code)
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// IsSupported reports whether code is one of the supported languages.
func IsSupported(code string) bool {
	_, ok := LookupLanguage(code)
	return ok
}

// LocaleTag maps a short code to the locale tag used by synthesizers.
// Unknown codes fall back to en-US.
func LocaleTag(code string) string {
	if l, ok := LookupLanguage(code); ok {
		return l.Tag
	}
	return "en-US"
}

// NormalizeLanguage trims and lower-cases a short code; empty means English.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return LanguageEnglish
	}
	return code
}

// DisplayName returns a human readable language name for messages.
func DisplayName(code string) string {
	if l, ok := LookupLanguage(code); ok {
		return l.Name
	}
	return code
}
