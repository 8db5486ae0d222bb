package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    []string
	}{
		{
			name: "code on hinted line",
			body: "Hello,\nYour verification code is 482913.\nThanks",
			want: []string{"482913"},
		},
		{
			name:    "code in subject",
			subject: "Your OTP: 1234",
			body:    "ignore 5678 here",
			want:    []string{"1234"},
		},
		{
			name: "numbers without hint are ignored",
			body: "Order 123456 shipped on 2024",
			want: nil,
		},
		{
			name: "too long and too short are ignored",
			body: "code 123 and code 123456789",
			want: nil,
		},
		{
			name: "deduplicated",
			body: "PIN 9999\nRepeat: your pin is 9999",
			want: []string{"9999"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Codes(tt.subject, tt.body))
		})
	}
}

func TestLinks(t *testing.T) {
	text := `Confirm at https://example.test/confirm?t=abc. Or visit (https://example.test/help).
Again: https://example.test/confirm?t=abc
<a href="http://plain.test/x">x</a>`

	assert.Equal(t, []string{
		"https://example.test/confirm?t=abc",
		"https://example.test/help",
		"http://plain.test/x",
	}, Links(text))

	assert.Nil(t, Links("no links here"))
}
