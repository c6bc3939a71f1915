package javascript_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/vehicle/executor"
	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/language/javascript"
)

func newSession(t *testing.T, registry *hostfunc.Registry) *executor.Session {
	t.Helper()

	exec, err := executor.New(registry, executor.WithLanguage(javascript.New()))
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	t.Cleanup(func() { exec.Close() })

	session, err := exec.NewSession(executor.WithSessionTimeout(5 * time.Second))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestJavaScriptBasicExecution(t *testing.T) {
	session := newSession(t, nil)

	result := session.Run(context.Background(), `console.log("hello")`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if strings.TrimSpace(result.Output) != "hello" {
		t.Errorf("expected 'hello', got %q", result.Output)
	}
}

func TestJavaScriptComputation(t *testing.T) {
	session := newSession(t, nil)

	result := session.Run(context.Background(), `
const sum = [1,2,3,4,5].reduce((a,b) => a + b, 0);
console.log(sum);
`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if strings.TrimSpace(result.Output) != "15" {
		t.Errorf("expected '15', got %q", result.Output)
	}
}

func TestJavaScriptSetTimeout(t *testing.T) {
	session := newSession(t, nil)

	result := session.Run(context.Background(), `
vehicle.setTimeout((who) => console.log("after", who), 20, "timer");
console.log("before");
`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Output != "before\nafter timer\n" {
		t.Errorf("unexpected output %q", result.Output)
	}
}

func TestJavaScriptEncodeDecode(t *testing.T) {
	session := newSession(t, nil)

	result := session.Run(context.Background(), `vehicle.decode(vehicle.encode("héllo")).length`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Value != "5" {
		t.Errorf("expected '5', got %q", result.Value)
	}
}

func TestJavaScriptCustomHostFunction(t *testing.T) {
	registry := hostfunc.DefaultRegistry()
	registry.RegisterSync("greet", func(s *hostfunc.State, args hostfunc.Args) (any, error) {
		name, err := args.String(0)
		if err != nil {
			return nil, err
		}
		return "Hello, " + name + "!", nil
	})

	session := newSession(t, registry)

	result := session.Run(context.Background(), `vehicle.ops.greet("World")`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Value != "Hello, World!" {
		t.Errorf("expected 'Hello, World!', got %q", result.Value)
	}

	result = session.Run(context.Background(), `vehicle.ops.greet(42)`)
	if result.Error == nil || !strings.Contains(result.Error.Error(), "TypeError") {
		t.Errorf("expected TypeError, got %v", result.Error)
	}
}
