package browserspec

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Spec
	}{
		{"chrome", Spec{Family: FamilyChrome}},
		{"CHROME", Spec{Family: FamilyChrome}},
		{"chromium", Spec{Family: FamilyChromium}},
		{"firefox", Spec{Family: FamilyFirefox}},
		{"safari", Spec{Family: FamilySafari}},
		{"edge", Spec{Family: FamilyEdge}},
		{"brave", Spec{Family: FamilyBrave}},
		{"opera", Spec{Family: FamilyOpera}},
		{"vivaldi", Spec{Family: FamilyVivaldi}},
		{"whale", Spec{Family: FamilyWhale}},
		{"chrome:work", Spec{Family: FamilyChrome, Profile: "work"}},
		{"chrome:Profile 2", Spec{Family: FamilyChrome, Profile: "Profile 2"}},
		{"chrome+gnome", Spec{Family: FamilyChrome, Keyring: "gnome"}},
		{"chrome+kwallet5:work", Spec{Family: FamilyChrome, Keyring: "kwallet5", Profile: "work"}},
		{"firefox:work::Personal", Spec{Family: FamilyFirefox, Profile: "work", Container: "Personal"}},
		{"firefox::Personal", Spec{Family: FamilyFirefox, Container: "Personal"}},
		{"firefox::none", Spec{Family: FamilyFirefox, Container: "none"}},
	}
	for _, tc := range tests {
		got, err := Parse(tc.input)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if *got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.input, *got, tc.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrMalformedSpec},
		{":work", ErrMalformedSpec},
		{"chrome:", ErrMalformedSpec},
		{"chrome+", ErrMalformedSpec},
		{"firefox::", ErrMalformedSpec},
		{"firefox::a::b", ErrMalformedSpec},
		{"netscape", ErrUnknownBrowser},
		{"lynx:work", ErrUnknownBrowser},
		{"firefox+gnome", ErrKeyringNotApplicable},
		{"safari+gnome", ErrKeyringNotApplicable},
		{"chrome::Personal", ErrContainerNotApplicable},
		{"safari::Personal", ErrContainerNotApplicable},
		{"edge:work::Personal", ErrContainerNotApplicable},
	}
	for _, tc := range tests {
		_, err := Parse(tc.input)
		if !errors.Is(err, tc.want) {
			t.Errorf("Parse(%q) error = %v, want %v", tc.input, err, tc.want)
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	a, err := Parse("chrome+kwallet5:work")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("chrome+kwallet5:work")
	if err != nil {
		t.Fatal(err)
	}
	if *a != *b {
		t.Errorf("same input parsed differently: %+v vs %+v", *a, *b)
	}
}

func TestString_RoundTrip(t *testing.T) {
	inputs := []string{
		"chrome",
		"chrome:work",
		"chrome+kwallet5",
		"chrome+kwallet5:Profile 2",
		"firefox::Personal",
		"firefox:dev::Work",
		"vivaldi:main",
	}
	for _, input := range inputs {
		spec, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", input, err)
		}
		again, err := Parse(spec.String())
		if err != nil {
			t.Fatalf("re-Parse(%q): %v", spec.String(), err)
		}
		if *again != *spec {
			t.Errorf("round trip of %q: %+v != %+v", input, *again, *spec)
		}
	}
}

func TestString_Canonicalizes(t *testing.T) {
	spec, err := Parse("ChRoMe:work")
	if err != nil {
		t.Fatal(err)
	}
	if got := spec.String(); got != "chrome:work" {
		t.Errorf("String() = %q, want %q", got, "chrome:work")
	}
}

func TestFamilyClassification(t *testing.T) {
	for _, f := range []Family{FamilyChrome, FamilyChromium, FamilyEdge, FamilyBrave, FamilyOpera, FamilyVivaldi, FamilyWhale} {
		if !f.IsChromium() {
			t.Errorf("%s should be chromium-family", f)
		}
		if f.IsFirefox() {
			t.Errorf("%s should not be firefox-family", f)
		}
	}
	if !FamilyFirefox.IsFirefox() || FamilyFirefox.IsChromium() {
		t.Error("firefox misclassified")
	}
	if FamilySafari.IsChromium() || FamilySafari.IsFirefox() {
		t.Error("safari misclassified")
	}
}
