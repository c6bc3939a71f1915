package executor_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caffeineduck/vehicle/executor"
	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sharedExec *executor.Executor

func TestMain(m *testing.M) {
	var err error
	sharedExec, err = executor.GetTestExecutor()
	if err != nil {
		panic("failed to create shared executor: " + err.Error())
	}

	code := m.Run()

	executor.CloseTestExecutor()
	os.Exit(code)
}

// writeModules writes files into a fresh directory and returns it.
func writeModules(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// copyFixtures copies testdata/modules into a fresh directory.
func copyFixtures(t *testing.T) string {
	t.Helper()

	entries, err := os.ReadDir("testdata/modules")
	require.NoError(t, err)

	files := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join("testdata/modules", e.Name()))
		require.NoError(t, err)
		files[e.Name()] = string(data)
	}
	return writeModules(t, files)
}

func runScript(t *testing.T, code string, opts ...executor.Option) executor.Result {
	t.Helper()

	dir := writeModules(t, map[string]string{"main.ts": code})
	return sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.ts"), opts...)
}

func TestRunModuleGraph(t *testing.T) {
	dir := copyFixtures(t)

	result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, result.Error)
	assert.Equal(t, "hello vehicle\ncount 1\n", result.Output)
	assert.Positive(t, result.Duration)
}

func TestRunFileOps(t *testing.T) {
	dir := copyFixtures(t)

	result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "files.ts"))
	require.NoError(t, result.Error)
	assert.Equal(t, "read Write to file.\nremove again IoError\nread missing IoError\n", result.Output)

	_, err := os.Stat(filepath.Join(dir, "scratch.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunTCPEcho(t *testing.T) {
	dir := copyFixtures(t)

	pr, pw := io.Pipe()
	exec, err := executor.New(nil, executor.WithStdout(pw))
	require.NoError(t, err)

	done := make(chan executor.Result, 1)
	go func() {
		done <- exec.RunFile(context.Background(), filepath.Join(dir, "echo.ts"), executor.WithTimeout(10*time.Second))
		pw.Close()
	}()

	line, err := bufio.NewReader(pr).ReadString('\n')
	require.NoError(t, err)
	go io.Copy(io.Discard, pr)

	port, err := strconv.Atoi(strings.TrimSpace(line))
	require.NoError(t, err)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	got := make([]byte, 4)
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))

	require.NoError(t, conn.Close())

	select {
	case result := <-done:
		require.NoError(t, result.Error)
	case <-time.After(10 * time.Second):
		t.Fatal("script did not finish after the client closed")
	}
}

func TestAcceptCanceledByClose(t *testing.T) {
	result := runScript(t, `
async function main() {
  const { resourceId } = vehicle.listen("127.0.0.1", 0);
  const pending = vehicle.accept(resourceId);
  vehicle.close(resourceId);
  try {
    await pending;
  } catch (err) {
    console.log(err.name);
  }
  try {
    await vehicle.accept(resourceId);
  } catch (err) {
    console.log(err.name);
  }
}
main();
`)
	require.NoError(t, result.Error)
	assert.Equal(t, "Cancelled\nBadResource\n", result.Output)
}

func TestListenBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	result := runScript(t, `
try {
  vehicle.listen("127.0.0.1", `+strconv.Itoa(port)+`);
} catch (err) {
  console.log(err.name);
}
try {
  vehicle.listen("not an ip", 0);
} catch (err) {
  console.log(err.name);
}
`)
	require.NoError(t, result.Error)
	assert.Equal(t, "BindError\nBindError\n", result.Output)
}

func TestArgumentTypeErrors(t *testing.T) {
	result := runScript(t, `
try {
  vehicle.removeFile(42);
} catch (err) {
  console.log(err instanceof TypeError);
}
vehicle.readFile(null).catch((err) => console.log(err instanceof TypeError));
`)
	require.NoError(t, result.Error)
	assert.Equal(t, "true\ntrue\n", result.Output)
}

func TestSleepOrdering(t *testing.T) {
	result := runScript(t, `
vehicle.setTimeout(() => console.log("slow"), 60);
vehicle.setTimeout(() => console.log("fast"), 10);
console.log("sync");
`)
	require.NoError(t, result.Error)
	assert.Equal(t, "sync\nfast\nslow\n", result.Output)
}

func TestDynamicImport(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"main.ts": `
async function main() {
  const mod = await import("./lib/value.ts");
  console.log(mod.value);
  try {
    await import("./missing.ts");
  } catch (err) {
    console.log(err.name);
  }
  try {
    await import("lodash");
  } catch (err) {
    console.log(err.name);
  }
}
main();
`,
		"lib/value.ts": `export const value: number = 7;`,
	})

	result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, result.Error)
	assert.Equal(t, "7\nLoadError\nResolutionError\n", result.Output)
}

func TestTopLevelAwait(t *testing.T) {
	result := runScript(t, `
console.log("before");
await vehicle.sleep(0);
console.log("after tla");
`)
	require.NoError(t, result.Error)
	assert.Equal(t, "before\nafter tla\n", result.Output)
}

func TestTopLevelAwaitDependency(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"main.ts": `
import { state } from "./lib.ts";
console.log(state);
await vehicle.sleep(50);
console.log(state);
`,
		"lib.ts": `
import { label } from "./label.ts";
export let state: string = "loading";
await vehicle.sleep(1);
state = label;
`,
		"label.ts": `export const label = "ready";`,
	})

	result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.ts"))
	require.NoError(t, result.Error)
	assert.Equal(t, "loading\nready\n", result.Output)
}

func TestTopLevelAwaitFailures(t *testing.T) {
	t.Run("rejection after await", func(t *testing.T) {
		result := runScript(t, `
await vehicle.sleep(1);
throw new TypeError("tla failed");
`)
		var se *executor.ScriptError
		require.ErrorAs(t, result.Error, &se)
		assert.Equal(t, "TypeError", se.Name)
		assert.Equal(t, "tla failed", se.Message)
		assert.False(t, se.Rejection)
	})

	t.Run("throw before first await", func(t *testing.T) {
		dir := writeModules(t, map[string]string{
			"main.ts": `
try {
  await import("./lib.ts");
} catch (err) {
  console.log("caught", err.message);
}
`,
			"lib.ts": `
const fail = true;
if (fail) throw new Error("early");
await vehicle.sleep(1);
`,
		})

		result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.ts"))
		require.NoError(t, result.Error)
		assert.Equal(t, "caught early\n", result.Output)
	})

	t.Run("never settles", func(t *testing.T) {
		result := runScript(t, `
await new Promise(() => {});
console.log("unreachable");
`)
		require.ErrorIs(t, result.Error, executor.ErrModuleNotSettled)
		assert.Contains(t, result.Error.Error(), "main.ts")
		assert.Empty(t, result.Output)
	})
}

func TestModulesAreStrict(t *testing.T) {
	t.Run("undeclared assignment", func(t *testing.T) {
		result := runScript(t, `
undeclared = 5;
console.log("unreachable");
`)
		var se *executor.ScriptError
		require.ErrorAs(t, result.Error, &se)
		assert.Equal(t, "ReferenceError", se.Name)
		assert.Empty(t, result.Output)
	})

	t.Run("top-level this", func(t *testing.T) {
		dir := writeModules(t, map[string]string{
			"main.js": `
import { outer } from "./lib.js";
console.log(typeof this, outer);
`,
			"lib.js": `export const outer = typeof this;`,
		})

		result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.js"))
		require.NoError(t, result.Error)
		assert.Equal(t, "undefined undefined\n", result.Output)
	})
}

func TestImportMeta(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"main.ts": `
import { meta } from "./lib/meta.ts";
console.log(import.meta.url);
console.log(import.meta.main, meta.main);
console.log(meta.url);
console.log(import.meta.resolve("./lib/meta.ts") === meta.url);
await vehicle.sleep(0);
console.log(import.meta.url === meta.entry);
`,
		"lib/meta.ts": `
export const meta = {
  url: import.meta.url,
  main: import.meta.main,
  entry: import.meta.resolve("../main.ts"),
};
`,
	})
	main := filepath.Join(dir, "main.ts")

	mainURL, err := loader.ResolvePath(main)
	require.NoError(t, err)
	libURL, err := loader.ResolvePath(filepath.Join(dir, "lib", "meta.ts"))
	require.NoError(t, err)

	result := sharedExec.RunFile(context.Background(), main)
	require.NoError(t, result.Error)
	assert.Equal(t, mainURL.String()+"\ntrue false\n"+libURL.String()+"\ntrue\ntrue\n", result.Output)
}

func TestModuleEvaluatedOncePerRun(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"main.js": `
import "./a.js";
import "./b.js";
import { loads } from "./shared.js";
console.log(loads);
`,
		"a.js":      `import "./shared.js";`,
		"b.js":      `import "./shared.js";`,
		"shared.js": `globalThis.loads = (globalThis.loads || 0) + 1; export const loads = globalThis.loads;`,
	})

	for i := 0; i < 2; i++ {
		result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.js"))
		require.NoError(t, result.Error)
		assert.Equal(t, "1\n", result.Output, "each run gets a fresh host")
	}
}

func TestModulesReloadedBetweenRuns(t *testing.T) {
	dir := writeModules(t, map[string]string{
		"main.js": `import { v } from "./v.js"; console.log(v);`,
		"v.js":    `export const v = "first";`,
	})
	main := filepath.Join(dir, "main.js")

	result := sharedExec.RunFile(context.Background(), main)
	require.NoError(t, result.Error)
	assert.Equal(t, "first\n", result.Output)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "v.js"), []byte(`export const v = "second";`), 0644))

	result = sharedExec.RunFile(context.Background(), main)
	require.NoError(t, result.Error)
	assert.Equal(t, "second\n", result.Output)
}

func TestEntryModuleLoadErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		result := sharedExec.RunFile(context.Background(), filepath.Join(t.TempDir(), "nope.ts"))
		var loadErr *loader.LoadError
		require.ErrorAs(t, result.Error, &loadErr)
		assert.Equal(t, hostfunc.LoadError, hostfunc.KindOf(result.Error))
	})

	t.Run("transpile failure", func(t *testing.T) {
		result := runScript(t, `const x: = ;`)
		var loadErr *loader.LoadError
		require.ErrorAs(t, result.Error, &loadErr)
		var tErr *loader.TranspileError
		assert.ErrorAs(t, result.Error, &tErr)
		assert.Empty(t, result.Output)
	})

	t.Run("static import of missing module", func(t *testing.T) {
		result := runScript(t, `import "./missing.ts"; console.log("unreachable");`)
		require.Error(t, result.Error)
		assert.Contains(t, result.Error.Error(), "LoadError")
		assert.Empty(t, result.Output)
	})
}

func TestUncaughtException(t *testing.T) {
	result := runScript(t, `
console.log("before");
throw new RangeError("boom");
`)
	var se *executor.ScriptError
	require.ErrorAs(t, result.Error, &se)
	assert.Equal(t, "RangeError", se.Name)
	assert.Equal(t, "boom", se.Message)
	assert.False(t, se.Rejection)
	assert.Equal(t, "before\n", result.Output)
}

func TestUnhandledRejection(t *testing.T) {
	result := runScript(t, `
async function fail() {
  await vehicle.sleep(1);
  throw new Error("late");
}
fail();
vehicle.setTimeout(() => console.log("never"), 200);
`)
	var se *executor.ScriptError
	require.ErrorAs(t, result.Error, &se)
	assert.True(t, se.Rejection)
	assert.Equal(t, "late", se.Message)
	assert.Equal(t, "Uncaught (in promise) Error: late", se.Error())
	assert.NotContains(t, result.Output, "never")
}

func TestUnhandledOpRejectionCarriesHostError(t *testing.T) {
	result := runScript(t, `vehicle.readFile("/definitely/not/here.txt");`)
	var se *executor.ScriptError
	require.ErrorAs(t, result.Error, &se)
	assert.Equal(t, "IoError", se.Name)
	assert.ErrorIs(t, result.Error, os.ErrNotExist)
}

func TestTimeout(t *testing.T) {
	t.Run("busy loop", func(t *testing.T) {
		result := runScript(t, `while (true) {}`, executor.WithTimeout(200*time.Millisecond))
		require.Error(t, result.Error)
		assert.ErrorIs(t, result.Error, executor.ErrTimeout)
		assert.Contains(t, result.Error.Error(), "timeout")
	})

	t.Run("pending sleep", func(t *testing.T) {
		start := time.Now()
		result := runScript(t, `vehicle.sleep(60000);`, executor.WithTimeout(200*time.Millisecond))
		assert.ErrorIs(t, result.Error, executor.ErrTimeout)
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("pending accept", func(t *testing.T) {
		result := runScript(t, `
const { resourceId } = vehicle.listen("127.0.0.1", 0);
vehicle.accept(resourceId);
`, executor.WithTimeout(200*time.Millisecond))
		assert.ErrorIs(t, result.Error, executor.ErrTimeout)
	})
}

func TestCallerCancellation(t *testing.T) {
	dir := writeModules(t, map[string]string{"main.ts": `vehicle.sleep(60000);`})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	result := sharedExec.RunFile(ctx, filepath.Join(dir, "main.ts"))
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestOutputLimit(t *testing.T) {
	exec, err := executor.New(nil, executor.WithOutputLimit(10))
	require.NoError(t, err)
	defer exec.Close()

	dir := writeModules(t, map[string]string{"main.js": `console.log("0123456789abcdef");`})
	result := exec.RunFile(context.Background(), filepath.Join(dir, "main.js"))
	require.NoError(t, result.Error)
	assert.Equal(t, "0123456789", result.Output)
}

func TestStderrCaptured(t *testing.T) {
	var stderr strings.Builder
	exec, err := executor.New(nil, executor.WithStderr(&stderr))
	require.NoError(t, err)
	defer exec.Close()

	dir := writeModules(t, map[string]string{"main.js": `console.error("oops"); console.log("fine");`})
	result := exec.RunFile(context.Background(), filepath.Join(dir, "main.js"))
	require.NoError(t, result.Error)
	assert.Equal(t, "oops\nfine\n", result.Output)
	assert.Equal(t, "oops\n", stderr.String())
}

func TestFSLimits(t *testing.T) {
	exec, err := executor.New(nil, executor.WithFSOptions(hostfunc.WithMaxWriteSize(4)))
	require.NoError(t, err)
	defer exec.Close()

	dir := writeModules(t, map[string]string{"main.js": `
vehicle.writeFile(__dirname + "/out.txt", "too long").catch((err) => console.log(err.name));
`})
	result := exec.RunFile(context.Background(), filepath.Join(dir, "main.js"))
	require.NoError(t, result.Error)
	assert.Equal(t, "IoError\n", result.Output)
}

func TestExecutorClosed(t *testing.T) {
	exec, err := executor.New(nil)
	require.NoError(t, err)
	require.NoError(t, exec.Close())

	result := exec.RunFile(context.Background(), "main.js")
	assert.ErrorIs(t, result.Error, executor.ErrClosed)

	_, err = exec.NewSession()
	assert.ErrorIs(t, err, executor.ErrClosed)
}

func TestConcurrentRuns(t *testing.T) {
	dir := writeModules(t, map[string]string{"main.ts": `
async function main() {
  await vehicle.sleep(20);
  console.log("done");
}
main();
`})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := sharedExec.RunFile(context.Background(), filepath.Join(dir, "main.ts"))
			if result.Error != nil {
				errs <- result.Error
				return
			}
			if result.Output != "done\n" {
				errs <- errors.New("unexpected output " + strconv.Quote(result.Output))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
