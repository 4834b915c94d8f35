package main

import (
	"fmt"
	"testing"

	"github.com/gurl-cli/gurl/internal/browserspec"
	"github.com/gurl-cli/gurl/internal/cookies"
)

func TestParseHeaders(t *testing.T) {
	header, err := parseHeaders([]string{"Accept: application/json", "X-Token:abc", "Empty:"})
	if err != nil {
		t.Fatal(err)
	}
	if got := header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
	if got := header.Get("X-Token"); got != "abc" {
		t.Errorf("X-Token = %q", got)
	}
	if got, ok := header["Empty"]; !ok || got[0] != "" {
		t.Errorf("Empty = %v", got)
	}
}

func TestParseHeadersRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"NoColon", ": value only"} {
		if _, err := parseHeaders([]string{raw}); err == nil {
			t.Errorf("parseHeaders(%q) should fail", raw)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{browserspec.ErrMalformedSpec, exitBadSpec},
		{browserspec.ErrUnknownBrowser, exitBadSpec},
		{cookies.ErrBrowserNotInstalled, exitNotInstalled},
		{cookies.ErrProfileNotFound, exitProfileNotFound},
		{cookies.ErrContainerNotFound, exitContainerMissing},
		{cookies.ErrStoreLocked, exitStoreLocked},
		{cookies.ErrCorruptStore, exitCorruptStore},
		{cookies.ErrDecryptionFailed, exitDecryption},
		{fmt.Errorf("wrapped: %w", cookies.ErrStoreLocked), exitStoreLocked},
		{fmt.Errorf("anything else"), exitGeneric},
	}
	for _, tt := range tests {
		if got := exitCodeFor(tt.err); got != tt.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
