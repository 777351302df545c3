package validator

import "testing"

type bookingInput struct {
	Timezone string `validate:"required,iana_tz"`
	Phone    string `validate:"required,e164ish"`
}

func TestCustomTags(t *testing.T) {
	val := New()

	cases := []struct {
		name    string
		input   bookingInput
		wantErr bool
	}{
		{"valid", bookingInput{Timezone: "America/New_York", Phone: "+14155550123"}, false},
		{"national number", bookingInput{Timezone: "Europe/Amsterdam", Phone: "(415) 555-0123"}, false},
		{"unknown timezone", bookingInput{Timezone: "Mars/Olympus", Phone: "+14155550123"}, true},
		{"local timezone", bookingInput{Timezone: "Local", Phone: "+14155550123"}, true},
		{"garbage phone", bookingInput{Timezone: "UTC", Phone: "call me"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := val.Struct(tc.input)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
