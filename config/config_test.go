package config

import "testing"

func TestEnvStringFallsBackToDefault(t *testing.T) {
	t.Setenv("CHAT_TEST_STRING", "")
	if got := envString("CHAT_TEST_STRING", "fallback"); got != "fallback" {
		t.Errorf("want fallback, got %q", got)
	}
}

func TestEnvStringUsesSetValue(t *testing.T) {
	t.Setenv("CHAT_TEST_STRING", "custom")
	if got := envString("CHAT_TEST_STRING", "fallback"); got != "custom" {
		t.Errorf("want custom, got %q", got)
	}
}

func TestEnvIntParsesOrFallsBack(t *testing.T) {
	t.Setenv("CHAT_TEST_INT", "42")
	if got := envInt("CHAT_TEST_INT", 7); got != 42 {
		t.Errorf("want 42, got %d", got)
	}

	t.Setenv("CHAT_TEST_INT", "not-a-number")
	if got := envInt("CHAT_TEST_INT", 7); got != 7 {
		t.Errorf("want fallback 7 on unparsable value, got %d", got)
	}
}

func TestEnvBoolParsesOrFallsBack(t *testing.T) {
	t.Setenv("CHAT_TEST_BOOL", "true")
	if got := envBool("CHAT_TEST_BOOL", false); got != true {
		t.Error("want true")
	}

	t.Setenv("CHAT_TEST_BOOL", "garbage")
	if got := envBool("CHAT_TEST_BOOL", false); got != false {
		t.Error("want fallback false on unparsable value")
	}
}

func TestEnvStringListSplitsOnComma(t *testing.T) {
	t.Setenv("CHAT_TEST_LIST", "https://a.example,https://b.example")
	got := envStringList("CHAT_TEST_LIST")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("unexpected split result: %v", got)
	}
}

func TestEnvStringListEmptyWhenUnset(t *testing.T) {
	t.Setenv("CHAT_TEST_LIST_UNSET", "")
	got := envStringList("CHAT_TEST_LIST_UNSET")
	if got != nil {
		t.Errorf("want nil for unset list, got %v", got)
	}
}

func TestLoadAppliesDevelopmentDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port == 0 {
		t.Error("expected a non-zero default port")
	}
	if len(cfg.JWTSecret) == 0 {
		t.Error("expected a non-empty default JWT secret")
	}
	if cfg.MaxConnectionsPerUser <= 0 {
		t.Error("expected a positive default connection cap")
	}
}
