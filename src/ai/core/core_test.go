package core

import (
	"context"
	"testing"
)

type echoClient struct{ opts Options }

func (e echoClient) Respond(_ context.Context, input string, opts Options) (string, error) {
	return e.opts.Merge(opts).Model + ":" + input, nil
}

func registerEcho() {
	Register(Provider{
		Name:         "echo-test",
		Aliases:      []string{"Echo-Alias"},
		DefaultModel: "echo-1",
		Credential:   func(cfg FactoryConfig) string { return cfg.OpenAIKey },
		New: func(cfg FactoryConfig) (Client, error) {
			return echoClient{opts: Options{Model: cfg.Model}}, nil
		},
	})
}

func TestRegistryResolvesAliasesCaseInsensitively(t *testing.T) {
	registerEcho()

	c, err := NewClient(FactoryConfig{Provider: "ECHO-ALIAS", Model: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	out, _ := c.Respond(context.Background(), "hi", Options{})
	if out != "m1:hi" {
		t.Fatalf("out = %q", out)
	}
	out, _ = c.Respond(context.Background(), "hi", Options{Model: "m2"})
	if out != "m2:hi" {
		t.Fatalf("override ignored: %q", out)
	}

	if _, err := NewClient(FactoryConfig{Provider: "nope"}); err == nil {
		t.Fatal("unknown provider accepted")
	}
}

func TestHasCredentials(t *testing.T) {
	registerEcho()

	if HasCredentials(FactoryConfig{Provider: "echo-test"}) {
		t.Fatal("missing key reported as present")
	}
	if !HasCredentials(FactoryConfig{Provider: "echo-alias", OpenAIKey: "k"}) {
		t.Fatal("key not seen")
	}
	if HasCredentials(FactoryConfig{Provider: "nope", OpenAIKey: "k"}) {
		t.Fatal("unknown provider has credentials")
	}
}

func TestResolveModelName(t *testing.T) {
	registerEcho()

	if got := ResolveModelName("echo-alias", ""); got != "echo-1" {
		t.Fatalf("got %q", got)
	}
	if got := ResolveModelName("echo-test", " custom "); got != "custom" {
		t.Fatalf("got %q", got)
	}
	if got := ResolveModelName("mystery", ""); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
