package ident

import (
	"reflect"
	"testing"

	"github.com/vango-dev/uiforge/internal/errors"
)

func TestVariants(t *testing.T) {
	tests := []struct {
		id   string
		want []string
	}{
		{"card", []string{"card"}},
		{"app-card", []string{"app-card", "card"}},
		{"app-app-card", []string{"app-app-card", "app-card", "card"}},
		{"app-secondary-button-variants", []string{"app-secondary-button-variants", "secondary-button-variants"}},
		{"app-app-app-card", []string{"app-app-app-card", "app-app-card", "app-card", "card"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := Variants(tt.id)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Variants(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestVariants_ClosedUnderItself(t *testing.T) {
	for _, id := range []string{"card", "app-card", "app-app-card", "app-app-app-x", "app", "app-app"} {
		all := make(map[string]bool)
		for _, v := range Variants(id) {
			if all[v] {
				t.Errorf("Variants(%q) repeats %q", id, v)
			}
			all[v] = true
		}
		for _, v := range Variants(id) {
			for _, w := range Variants(v) {
				if !all[w] {
					t.Errorf("Variants(%q) contains %q not in Variants(%q)", v, w, id)
				}
			}
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"card3", false},
		{"app-secondary-button", false},
		{"Card-2", false},
		{"", true},
		{"card_3", true},
		{"../etc", true},
		{"card button", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := Validate(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, "E200") {
				t.Errorf("Validate(%q) code = %q, want E200", tt.id, errors.CodeOf(err))
			}
		})
	}
}

func TestClassName(t *testing.T) {
	tests := map[string]string{
		"card":                          "CardComponent",
		"secondary-button":              "SecondaryButtonComponent",
		"app-secondary-button-variants": "AppSecondaryButtonVariantsComponent",
		"card3":                         "Card3Component",
	}
	for id, want := range tests {
		if got := ClassName(id); got != want {
			t.Errorf("ClassName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestTagName(t *testing.T) {
	tests := map[string]string{
		"card":         "app-card",
		"app-card":     "app-card",
		"app-app-card": "app-app-card",
	}
	for id, want := range tests {
		if got := TagName(id); got != want {
			t.Errorf("TagName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestWordsAndBase(t *testing.T) {
	if got := Words("app-app-secondary-button"); !reflect.DeepEqual(got, []string{"secondary", "button"}) {
		t.Errorf("Words = %v", got)
	}
	if got := Base("app"); got != "app" {
		t.Errorf("Base(app) = %q", got)
	}
	if got := ImportModule("card"); got != "card/card.component" {
		t.Errorf("ImportModule = %q", got)
	}
}
