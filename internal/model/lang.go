package model

// Content is stored bilingually: every user-facing text column exists in an
// Arabic and an English variant side by side. The storage layer never
// translates anything; responses pick one side based on the requested
// language. Arabic is the default when the parameter is absent or unknown.

const (
	LangArabic  = "ar"
	LangEnglish = "en"
)

// NormalizeLang maps an arbitrary language parameter onto a supported
// language code, defaulting to Arabic.
func NormalizeLang(lang string) string {
	if lang == LangEnglish {
		return LangEnglish
	}
	return LangArabic
}

// Pick returns the Arabic or English variant of a text pair according to
// the requested language.
func Pick(lang, ar, en string) string {
	if NormalizeLang(lang) == LangEnglish {
		return en
	}
	return ar
}
