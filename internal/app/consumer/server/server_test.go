package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	consumerconfig "gumdrop/internal/app/consumer/config"
	"gumdrop/internal/notify"
)

func TestAuthKeysFromEnv(t *testing.T) {
	keys, err := authKeys(consumerconfig.Config{AWSAccessKeyID: "id", AWSSecretKey: "secret"})
	if err != nil {
		t.Fatalf("auth keys: %v", err)
	}
	want := notify.AuthKeys{"accessKeyId": "id", "secretAccessKey": "secret"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthKeysFilePreferred(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	if err := os.WriteFile(path, []byte("accessKeyId: file-id\nsecretAccessKey: file-secret\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	keys, err := authKeys(consumerconfig.Config{NotifyAuthFile: path, AWSAccessKeyID: "env-id", AWSRegion: "eu-west-1"})
	if err != nil {
		t.Fatalf("auth keys: %v", err)
	}
	want := notify.AuthKeys{"accessKeyId": "file-id", "secretAccessKey": "file-secret", "region": "eu-west-1"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}
