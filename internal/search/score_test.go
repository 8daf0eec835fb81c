package search

import "testing"

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Pink Floyd — The Wall (1979) [FLAC] ", "pink floyd the wall 1979 flac"},
		{"Café del Mar", "cafe del mar"},
		{"AC/DC - Back_In_Black", "ac dc back in black"},
		{"", ""},
		{"***", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScoreRange(t *testing.T) {
	inputs := []struct {
		query   string
		title   string
		seeders int
	}{
		{"dark side of the moon", "Pink Floyd - Dark Side of the Moon (1973) FLAC", 500},
		{"dark side of the moon", "dark side of the moon", 1000000},
		{"ubuntu", "completely unrelated record", 0},
		{"a", "b", -5},
	}
	for _, in := range inputs {
		got := Score(in.query, in.title, in.seeders)
		if got < 0 || got > 100 {
			t.Errorf("Score(%q, %q, %d) = %d, out of range", in.query, in.title, in.seeders, got)
		}
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	if got := Score("", "some title", 100); got != 0 {
		t.Fatalf("empty query: got %d, want 0", got)
	}
	if got := Score("some query", "", 100); got != 0 {
		t.Fatalf("empty title: got %d, want 0", got)
	}
	if got := Score("***", "title", 100); got != 0 {
		t.Fatalf("punctuation-only query: got %d, want 0", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	first := Score("dark side of the moon", "Pink Floyd Dark Side of the Moon 1973", 321)
	for i := 0; i < 10; i++ {
		if got := Score("dark side of the moon", "Pink Floyd Dark Side of the Moon 1973", 321); got != first {
			t.Fatalf("score changed between calls: %d then %d", first, got)
		}
	}
}

func TestScoreExactMatchBeatsPartial(t *testing.T) {
	exact := Score("dark side of the moon", "Dark Side of the Moon", 10)
	partial := Score("dark side of the moon", "The Moon Landing Documentary", 10)
	if exact <= partial {
		t.Fatalf("exact %d should beat partial %d", exact, partial)
	}
}

func TestScorePhraseBeatsScatteredTokens(t *testing.T) {
	phrase := Score("the dark side", "Album: The Dark Side (Remastered)", 10)
	scattered := Score("the dark side", "Side A: The Best of Dark Ambient", 10)
	if phrase <= scattered {
		t.Fatalf("phrase hit %d should beat scattered tokens %d", phrase, scattered)
	}
}

func TestScoreYearBoost(t *testing.T) {
	withYear := Score("the wall 1979", "Pink Floyd The Wall 1979", 10)
	withoutYear := Score("the wall 1979", "Pink Floyd The Wall", 10)
	if withYear <= withoutYear {
		t.Fatalf("year hit %d should beat miss %d", withYear, withoutYear)
	}
}

func TestScoreSeedersMonotonic(t *testing.T) {
	prev := -1
	for _, seeders := range []int{0, 1, 10, 100, 1000, 100000} {
		got := Score("ubuntu server", "Ubuntu Server ISO", seeders)
		if got < prev {
			t.Fatalf("score decreased with more seeders: %d seeders gave %d after %d", seeders, got, prev)
		}
		prev = got
	}
}

func TestScoreNegativeSeedersSafe(t *testing.T) {
	if got := Score("ubuntu", "ubuntu", -100); got < 0 || got > 100 {
		t.Fatalf("negative seeders produced out-of-range score %d", got)
	}
}
