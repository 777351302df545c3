package storage

import (
	"strings"
	"testing"

	"activation_backend/platform/apperr"
)

func TestValidateContentType(t *testing.T) {
	s := &MinIOService{maxFileSize: 1024}
	cases := []struct {
		contentType string
		ok          bool
	}{
		{"application/pdf", true},
		{"Image/PNG", true},
		{"text/plain; charset=utf-8", true},
		{"application/x-msdownload", false},
		{"", false},
	}
	for _, tc := range cases {
		err := s.ValidateContentType(tc.contentType)
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tc.contentType, err)
		}
		if !tc.ok && !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%q: expected validation error, got %v", tc.contentType, err)
		}
	}
}

func TestValidateFileSize(t *testing.T) {
	s := &MinIOService{maxFileSize: 1024}
	if err := s.ValidateFileSize(1024); err != nil {
		t.Fatalf("expected limit to be inclusive, got %v", err)
	}
	for _, size := range []int64{0, -1, 1025} {
		if err := s.ValidateFileSize(size); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("size %d: expected validation error, got %v", size, err)
		}
	}
}

func TestObjectKeyStaysInFolder(t *testing.T) {
	key := objectKey("org/meetings/m1", "../../etc/notes.pdf")
	if !strings.HasPrefix(key, "org/meetings/m1/notes_") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if objectKey("f", "a.txt") == objectKey("f", "a.txt") {
		t.Fatal("expected unique keys")
	}
}
