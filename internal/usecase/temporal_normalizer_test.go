package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeTemporalText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a las 5 de la tarde", "a las 17:00"},
		{"a las 9 de la mañana", "a las 9:00"},
		{"18h", "18:00"},
		{"a las 18 horas", "a las 18:00"},
		{"18h30", "18:30"},
		{"17.30", "17:30"},
		{"las 5 y media", "las 5:30"},
		{"las 8 menos cuarto", "las 7:45"},
		{"a las 0 menos cuarto", "a las 23:45"},
		{"las 5 y cinco", "las 5:05"},
		{"las 5 y diez", "las 5:10"},
		{"las 5 y veinte", "las 5:20"},
		{"las 5 y veinticinco", "las 5:25"},
		{"las 5 y treinta", "las 5:30"},
		{"las 5 menos cinco", "las 4:55"},
		{"las 5 menos diez", "las 4:50"},
		{"las 5 menos veinte", "las 4:40"},
		{"las 5 menos veinticinco", "las 4:35"},
		{"las 5 menos media", "las 5 menos media"},
		{"a las 5 y media de la tarde", "a las 17:30"},
		{"25h", "23:00"},
		{"99 horas", "23:00"},
		{"a las 30 de la tarde", "a las 23:00"},
		{"18h75", "18h75"},
		{"a las 5 pm h", "a las 17:00"},
		{"las 9 a.m. horas", "las 9:00"},
		{"a las 5 de la tarde hrs", "a las 17:00"},
		{"17:30 h 18h30", "17:30 18:30"},
		{"al mediodía", "a las 13:00"},
		{"a medianoche", "a las 0:00"},
		{"3pm", "15:00"},
		{"7 p.m.", "19:00"},
		{"12 am", "0:00"},
		{"el sabado en la tarde", "el sábado por la tarde"},
		{"el próximo miercoles", "el proximo miércoles"},
		{"sobre las 6 de la tarde", "las 18:00"},
		{"10 en punto", "10:00"},
		{"Mañana  A LAS 5 de la tarde", "mañana a las 17:00"},
		{"el 20 por la tarde", "el 20 por la tarde"},
		{"13/08 15.30", "13/08 15:30"},
		{"1.5 kg", "1.5 kg"},
		{"cuando pueda", "cuando pueda"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeTemporalText(tt.input); got != tt.want {
				t.Errorf("NormalizeTemporalText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTemporalText_Idempotent(t *testing.T) {
	inputs := []string{
		"mañana a las 5 de la tarde",
		"el sabado al mediodia",
		"las 8 menos cuarto",
		"hoy 7 p.m.",
		"pasado mañana por la mañana",
		"18h30",
		"a las 5 pm h",
		"las 9 a.m. horas",
		"a las 5 de la tarde hrs",
		"17:30 h 18h30",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := NormalizeTemporalText(in)
			if twice := NormalizeTemporalText(once); twice != once {
				t.Errorf("NormalizeTemporalText(%q) = %q, applied again = %q", in, once, twice)
			}
		})
	}
}

// temporalVocabulary covers every rule of the normalizer plus the suffixes
// and connectors that can chain them.
var temporalVocabulary = []string{
	"a las", "las", "sobre las", "5", "12", "0", "25", "17:30", "17.30", "18h30",
	"pm", "a.m.", "h", "hrs", "horas", "de la tarde", "de la mañana",
	"y media", "y cinco", "menos cuarto", "menos media", "en punto",
	"mediodía", "medio día", "por la noche", "en la tarde", "mañana",
}

func TestNormalizeTemporalText_IdempotentCorpus(t *testing.T) {
	var corpus []string
	for _, a := range temporalVocabulary {
		corpus = append(corpus, a)
		for _, b := range temporalVocabulary {
			corpus = append(corpus, a+" "+b, a+b)
			for _, c := range temporalVocabulary {
				corpus = append(corpus, strings.Join([]string{a, b, c}, " "))
			}
		}
	}

	for _, in := range corpus {
		once := NormalizeTemporalText(in)
		if twice := NormalizeTemporalText(once); twice != once {
			t.Errorf("NormalizeTemporalText(%q) = %q, applied again = %q", in, once, twice)
		}
	}
}

func FuzzNormalizeTemporalText(f *testing.F) {
	for _, seed := range temporalVocabulary {
		f.Add(seed)
	}
	f.Add("mañana a las 5 de la tarde hrs")
	f.Add("el sabado al mediodia 7 p.m. h")
	f.Add("13/08 15.30 horas")

	f.Fuzz(func(t *testing.T, in string) {
		if !utf8.ValidString(in) {
			t.Skip()
		}
		once := NormalizeTemporalText(in)
		if twice := NormalizeTemporalText(once); twice != once {
			t.Errorf("NormalizeTemporalText(%q) = %q, applied again = %q", in, once, twice)
		}
	})
}
