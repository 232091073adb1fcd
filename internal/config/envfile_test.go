package config_test

import (
	"reflect"
	"testing"

	"github.com/signalnine/phasebench/internal/config"
)

func TestParseEnvFile(t *testing.T) {
	got, err := config.ParseEnvFile("../../testdata/bench.env")
	if err != nil {
		t.Fatalf("ParseEnvFile: %v", err)
	}
	want := []string{
		"ORT_LOG_SEVERITY=3",
		"RAYON_NUM_THREADS=4",
		"CUDA_VISIBLE_DEVICES=0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseEnvFileMissing(t *testing.T) {
	if _, err := config.ParseEnvFile("../../testdata/missing.env"); err == nil {
		t.Error("expected error for missing env file")
	}
}
