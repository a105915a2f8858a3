package translations

// GetItalianTranslations returns all Italian text strings
func GetItalianTranslations() Translations {
	return Translations{
		StatusStale:        "Prezzi vecchi",
		StatusStaleSub:     "Verifica prima",
		StatusOpen:         "Aperto",
		StatusOpenSub:      "Servito o Self",
		StatusOpen24h:      "Aperto 24h",
		StatusOpen24hSub:   "Solo Self Service",
		StatusApproximated: "Orari stimati, nessun dato in tempo reale",

		NearbyTitle:   "⛽ Distributore vicino",
		NearbyBody:    "%s a %.1f km: %s a %.3f €",
		NearbyNoPrice: "%s a %.1f km",

		NoFavorites: "Nessun distributore salvato.",

		Diesel:   "Diesel",
		Unleaded: "Benzina",
		LPG:      "GPL",
		CNG:      "Metano",
	}
}
