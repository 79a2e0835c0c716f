package main

import (
	"testing"

	"github.com/vango-dev/uiforge/internal/config"
	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/filestore"
	"github.com/vango-dev/uiforge/internal/scaffold"
)

func TestNewGenerator(t *testing.T) {
	local := scaffold.NewLocal(filestore.NewMemory(nil), "src/app/components")

	tests := []struct {
		name     string
		mode     string
		timeout  string
		wantCode string
		remote   bool
	}{
		{name: "local", mode: "local"},
		{name: "remote", mode: "remote", timeout: "3s", remote: true},
		{name: "remote default timeout", mode: "remote", remote: true},
		{name: "remote bad timeout", mode: "remote", timeout: "soon", wantCode: "E121"},
		{name: "local ignores timeout", mode: "local", timeout: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Scaffold.Mode = tt.mode
			cfg.Scaffold.Timeout = tt.timeout

			gen, err := newGenerator(cfg, local)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("err = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := gen.(*scaffold.Client); ok != tt.remote {
				t.Errorf("generator = %T, remote = %v", gen, tt.remote)
			}
		})
	}
}
