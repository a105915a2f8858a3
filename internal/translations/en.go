package translations

// GetEnglishTranslations returns all English text strings
func GetEnglishTranslations() Translations {
	return Translations{
		StatusStale:        "Stale prices",
		StatusStaleSub:     "Verify before relying on them",
		StatusOpen:         "Open",
		StatusOpenSub:      "Full or self service",
		StatusOpen24h:      "Open 24h",
		StatusOpen24hSub:   "Self-service only",
		StatusApproximated: "Estimated opening hours, no live data",

		NearbyTitle:   "⛽ Fuel station nearby",
		NearbyBody:    "%s %.1f km away: %s at %.3f €",
		NearbyNoPrice: "%s %.1f km away",

		NoFavorites: "No saved stations.",

		Diesel:   "Diesel",
		Unleaded: "Petrol",
		LPG:      "LPG",
		CNG:      "CNG",
	}
}
