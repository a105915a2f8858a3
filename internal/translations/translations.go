package translations

// Translations contains all user-facing strings produced by the engine
type Translations struct {
	// Station status
	StatusStale        string
	StatusStaleSub     string
	StatusOpen         string
	StatusOpenSub      string
	StatusOpen24h      string
	StatusOpen24hSub   string
	StatusApproximated string

	// Proximity notification
	NearbyTitle   string
	NearbyBody    string
	NearbyNoPrice string

	// Favorites
	NoFavorites string

	// Fuel labels
	Diesel   string
	Unleaded string
	LPG      string
	CNG      string
}

// GetTranslations returns translations for the specified language
func GetTranslations(lang string) Translations {
	switch lang {
	case "en", "english":
		return GetEnglishTranslations()
	default:
		return GetItalianTranslations()
	}
}

// Normalize maps a language parameter to a supported code, defaults to Italian
func Normalize(lang string) string {
	switch lang {
	case "en", "english":
		return "en"
	default:
		return "it"
	}
}
