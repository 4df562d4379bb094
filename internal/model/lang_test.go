package model

import "testing"

func TestNormalizeLang(t *testing.T) {
	if NormalizeLang("en") != LangEnglish {
		t.Fatalf("en not recognized")
	}
	for _, in := range []string{"", "ar", "fr", "EN", "english"} {
		if NormalizeLang(in) != LangArabic {
			t.Fatalf("%q should fall back to Arabic", in)
		}
	}
}

func TestPick(t *testing.T) {
	if Pick("ar", "مرحبا", "hello") != "مرحبا" {
		t.Fatalf("expected Arabic variant")
	}
	if Pick("en", "مرحبا", "hello") != "hello" {
		t.Fatalf("expected English variant")
	}
	if Pick("unknown", "مرحبا", "hello") != "مرحبا" {
		t.Fatalf("unknown language should fall back to Arabic")
	}
}
