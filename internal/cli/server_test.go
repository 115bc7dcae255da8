package cli

import (
	"testing"

	"exam-service/internal/config"
)

func TestResolvePort(t *testing.T) {
	withConfig := config.Config{}
	withConfig.Server.Port = "9090"

	cases := []struct {
		name string
		flag string
		cfg  config.Config
		want string
	}{
		{name: "flag wins", flag: "7000", cfg: withConfig, want: "7000"},
		{name: "config port", cfg: withConfig, want: "9090"},
		{name: "default", want: "8080"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolvePort(tc.flag, tc.cfg); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPortFlagDefaultsToEnvOnly(t *testing.T) {
	t.Setenv("PORT", "")
	cmd := newRootCmd()
	if got := cmd.PersistentFlags().Lookup("port").DefValue; got != "" {
		t.Fatalf("expected empty port default so the config can apply, got %q", got)
	}

	t.Setenv("PORT", "6060")
	cmd = newRootCmd()
	if got := cmd.PersistentFlags().Lookup("port").DefValue; got != "6060" {
		t.Fatalf("expected PORT to seed the flag, got %q", got)
	}
}
