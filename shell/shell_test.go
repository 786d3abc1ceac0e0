package shell_test

import (
	"context"
	"strings"
	"testing"

	vfs "github.com/mwantia/xila"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/device"
	"github.com/mwantia/xila/mount"
	"github.com/mwantia/xila/shell"
	"github.com/mwantia/xila/shell/builtin"
	"github.com/mwantia/xila/storage/memory"
	"github.com/mwantia/xila/task"
	"github.com/mwantia/xila/users"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = data.RootTaskIdentifier

type environment struct {
	vfs      *vfs.VirtualFileSystem
	tasks    *task.Manager
	shell    *shell.Shell
	standard *vfs.Standard
}

func newEnvironment(t *testing.T) *environment {
	t.Helper()
	ctx := context.Background()

	tasks, err := task.New(task.WithSpawners(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tasks.Shutdown(context.Background()) })

	v, err := vfs.NewVirtualFileSystem(tasks, users.NewMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Shutdown(context.Background()) })

	fs, err := mount.New(ctx, memory.NewMemoryStorage())
	require.NoError(t, err)
	_, err = v.Mount(ctx, data.Root, fs)
	require.NoError(t, err)

	require.NoError(t, v.CreateDirectory(ctx, root, data.MustPath("/devices"), false))
	require.NoError(t, v.MountStaticDevice(ctx, root, "/devices/null", device.NewNull()))
	require.NoError(t, v.CreateFile(ctx, root, data.MustPath("/out")))
	require.NoError(t, v.CreateFile(ctx, root, data.MustPath("/err")))

	standard, err := v.OpenStandard(ctx, root, data.MustPath("/devices/null"), data.MustPath("/out"), data.MustPath("/err"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = standard.Close(context.Background()) })

	sh, err := shell.New(v, tasks)
	require.NoError(t, err)
	require.NoError(t, builtin.Register(sh))

	return &environment{
		vfs:      v,
		tasks:    tasks,
		shell:    sh,
		standard: standard,
	}
}

// execute runs line and returns the exit code together with everything
// written to the standard output, which is emptied afterwards.
func (e *environment) execute(t *testing.T, line string) (int, string, error) {
	t.Helper()

	code, err := e.shell.Execute(context.Background(), e.standard, line)
	return code, e.drain(t, "/out"), err
}

func (e *environment) drain(t *testing.T, path string) string {
	t.Helper()

	content := e.read(t, path)
	e.write(t, path, "")
	return content
}

func (e *environment) read(t *testing.T, path string) string {
	t.Helper()
	ctx := context.Background()

	file, err := e.vfs.Open(ctx, root, data.MustPath(path), data.NewFlags(data.ModeRead, data.OpenNone, data.StatusNone))
	require.NoError(t, err)
	content, err := e.vfs.ReadToEnd(ctx, root, file, 64)
	require.NoError(t, err)
	require.NoError(t, e.vfs.Close(ctx, root, file))
	return string(content)
}

func (e *environment) write(t *testing.T, path, content string) {
	t.Helper()
	ctx := context.Background()

	file, err := e.vfs.Open(ctx, root, data.MustPath(path), data.NewFlags(data.ModeWrite, data.NewOpen(true, false, true), data.StatusNone))
	require.NoError(t, err)
	require.NoError(t, e.vfs.WriteAll(ctx, root, file, []byte(content)))
	require.NoError(t, e.vfs.Close(ctx, root, file))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		stages [][]string
		err    error
	}{
		{name: "empty", line: "   "},
		{name: "words", line: "ls  -l /", stages: [][]string{{"ls", "-l", "/"}}},
		{name: "single quotes", line: `echo 'a  b' '\n'`, stages: [][]string{{"echo", "a  b", `\n`}}},
		{name: "double quotes", line: `echo "say \"hi\"" x\ y`, stages: [][]string{{"echo", `say "hi"`, "x y"}}},
		{name: "empty argument", line: `echo ""`, stages: [][]string{{"echo", ""}}},
		{name: "pipeline", line: "echo a|cat | tee /b", stages: [][]string{{"echo", "a"}, {"cat"}, {"tee", "/b"}}},
		{name: "quoted pipe", line: "echo 'a|b'", stages: [][]string{{"echo", "a|b"}}},
		{name: "unterminated", line: `echo "a`, err: shell.ErrUnterminatedQuote},
		{name: "trailing escape", line: `echo a\`, err: shell.ErrUnterminatedQuote},
		{name: "leading pipe", line: "| cat", err: shell.ErrEmptyPipelineStage},
		{name: "trailing pipe", line: "echo a |", err: shell.ErrEmptyPipelineStage},
		{name: "double pipe", line: "echo a || cat", err: shell.ErrEmptyPipelineStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := shell.Split(tt.line)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.stages, stages); diff != "" {
				t.Errorf("Split(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParser(t *testing.T) {
	flags := shell.NewFlagSet(
		&shell.Flag{Name: "recursive", Short: "r", Type: shell.FlagBool},
		&shell.Flag{Name: "force", Short: "f", Type: shell.FlagBool},
		&shell.Flag{Name: "size", Short: "s", Type: shell.FlagInt, Default: int64(8)},
		&shell.Flag{Name: "name", Short: "n", Type: shell.FlagString},
	)
	parser := shell.NewParser(flags)

	args, err := parser.Parse([]string{"-rf", "a", "--size=16", "--name", "x", "b"})
	require.NoError(t, err)
	assert.True(t, args.Bool("recursive"))
	assert.True(t, args.Bool("force"))
	assert.Equal(t, int64(16), args.Int("size"))
	assert.Equal(t, "x", args.String("name"))
	assert.Equal(t, []string{"a", "b"}, args.Args)

	args, err = parser.Parse([]string{"-s32", "--", "-r"})
	require.NoError(t, err)
	assert.Equal(t, int64(32), args.Int("size"))
	assert.False(t, args.Bool("recursive"))
	assert.Equal(t, []string{"-r"}, args.Args)

	args, err = parser.Parse([]string{"-"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), args.Int("size"))
	assert.Equal(t, []string{"-"}, args.Args)

	_, err = parser.Parse([]string{"-x"})
	assert.ErrorIs(t, err, shell.ErrUnknownFlag)
	_, err = parser.Parse([]string{"--unknown"})
	assert.ErrorIs(t, err, shell.ErrUnknownFlag)
	_, err = parser.Parse([]string{"--name"})
	assert.ErrorIs(t, err, shell.ErrMissingValue)
	_, err = parser.Parse([]string{"-s", "large"})
	assert.ErrorIs(t, err, shell.ErrInvalidValue)

	required := shell.NewParser(shell.NewFlagSet(&shell.Flag{Name: "target", Short: "t", Type: shell.FlagString, Required: true}))
	_, err = required.Parse(nil)
	assert.ErrorIs(t, err, shell.ErrRequiredFlag)

	args, err = shell.NewParser(nil).Parse([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, args.Args)
}

func TestRegistry(t *testing.T) {
	e := newEnvironment(t)

	assert.ErrorIs(t, e.shell.Register(&builtin.EchoCommand{}), shell.ErrAlreadyRegistered)
	assert.ErrorIs(t, e.shell.Register(nil), shell.ErrInvalidCommand)

	names := make([]string, 0)
	for _, cmd := range e.shell.List() {
		names = append(names, cmd.Name())
	}
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "ls")

	require.NoError(t, e.shell.Unregister("echo"))
	_, err := e.shell.Get("echo")
	assert.ErrorIs(t, err, shell.ErrCommandNotFound)
	assert.ErrorIs(t, e.shell.Unregister("echo"), shell.ErrCommandNotFound)
}

func TestEcho(t *testing.T) {
	e := newEnvironment(t)

	code, out, err := e.execute(t, "echo hello world")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Equal(t, "hello world\n", out)

	_, out, err = e.execute(t, "echo -n 'no newline'")
	require.NoError(t, err)
	assert.Equal(t, "no newline", out)
}

func TestPipeline(t *testing.T) {
	e := newEnvironment(t)

	code, out, err := e.execute(t, "echo through the pipes | cat | tee /copy")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Equal(t, "through the pipes\n", out)
	assert.Equal(t, "through the pipes\n", e.read(t, "/copy"))

	_, _, err = e.execute(t, "echo again | tee -a /copy")
	require.NoError(t, err)
	assert.Equal(t, "through the pipes\nagain\n", e.read(t, "/copy"))

	// no slot of the shell task is left behind
	for _, info := range e.vfs.Mounts() {
		if info.Path == data.Root {
			assert.Equal(t, 2, info.OpenCount)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	e := newEnvironment(t)

	code, _, err := e.execute(t, "missing argument")
	assert.ErrorIs(t, err, shell.ErrCommandNotFound)
	assert.Equal(t, shell.ExitNotFound, code)
	assert.Contains(t, e.drain(t, "/err"), "missing: command not found")

	code, _, err = e.execute(t, "ls --bogus")
	assert.ErrorIs(t, err, shell.ErrUnknownFlag)
	assert.Equal(t, shell.ExitUsage, code)
	assert.Contains(t, e.drain(t, "/err"), "usage: ls")

	code, _, err = e.execute(t, "cat /nowhere")
	assert.ErrorIs(t, err, data.ErrNotFound)
	assert.Equal(t, shell.ExitFailure, code)
	assert.Contains(t, e.drain(t, "/err"), "cat: ")

	code, _, err = e.execute(t, "mv /a")
	assert.ErrorIs(t, err, shell.ErrMissingArgument)
	assert.Equal(t, shell.ExitUsage, code)

	code, _, err = e.execute(t, `echo "open`)
	assert.ErrorIs(t, err, shell.ErrUnterminatedQuote)
	assert.Equal(t, shell.ExitUsage, code)

	code, out, err := e.execute(t, "")
	require.NoError(t, err)
	assert.Equal(t, shell.ExitSuccess, code)
	assert.Empty(t, out)
}

func TestFileCommands(t *testing.T) {
	e := newEnvironment(t)

	_, _, err := e.execute(t, "mkdir -p /a/b/c")
	require.NoError(t, err)
	_, _, err = e.execute(t, "mkdir /a")
	assert.ErrorIs(t, err, data.ErrDirectoryAlreadyExists)
	e.drain(t, "/err")

	e.write(t, "/a/file", "content")

	_, out, err := e.execute(t, "ls /a")
	require.NoError(t, err)
	assert.Equal(t, "b\nfile\n", out)

	_, out, err = e.execute(t, "ls -l /a/file")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-rw-r--r--"), out)
	assert.Contains(t, out, "7 /a/file")

	_, out, err = e.execute(t, "stat /a/file")
	require.NoError(t, err)
	assert.Contains(t, out, "Type: file")
	assert.Contains(t, out, "Size: 7")

	_, _, err = e.execute(t, "mv /a/file /a/b/moved")
	require.NoError(t, err)
	_, out, err = e.execute(t, "cat /a/b/moved")
	require.NoError(t, err)
	assert.Equal(t, "content", out)

	_, _, err = e.execute(t, "rm /a")
	assert.ErrorIs(t, err, data.ErrDirectoryNotEmpty)
	_, _, err = e.execute(t, "rm -r /a")
	require.NoError(t, err)

	exists, err := e.vfs.Exists(context.Background(), data.MustPath("/a"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWorkingDirectory(t *testing.T) {
	e := newEnvironment(t)
	require.NoError(t, e.tasks.SetEnvironmentVariable(root, shell.WorkingDirectoryVariable, "/home"))

	_, _, err := e.execute(t, "mkdir /home")
	require.NoError(t, err)
	e.write(t, "/home/notes", "relative")

	_, out, err := e.execute(t, "cat notes ../home/./notes")
	require.NoError(t, err)
	assert.Equal(t, "relativerelative", out)
}

func TestSystemCommands(t *testing.T) {
	e := newEnvironment(t)

	_, out, err := e.execute(t, "ls /devices")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)

	_, out, err = e.execute(t, "devices /devices")
	require.NoError(t, err)
	assert.Contains(t, out, "c ")
	assert.Contains(t, out, "/devices/null")

	_, out, err = e.execute(t, "mounts")
	require.NoError(t, err)
	assert.Contains(t, out, " / ")

	_, out, err = e.execute(t, "ps")
	require.NoError(t, err)
	assert.Contains(t, out, "xila")
	assert.Contains(t, out, " ps\n")

	_, out, err = e.execute(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "mkfifo")

	_, out, err = e.execute(t, "help rm")
	require.NoError(t, err)
	assert.Contains(t, out, "--recursive")

	_, _, err = e.execute(t, "mkfifo -s 32 /fifo")
	require.NoError(t, err)
	kind, err := e.vfs.GetType(context.Background(), data.MustPath("/fifo"))
	require.NoError(t, err)
	assert.Equal(t, data.FileTypePipe, kind)
}

func TestRun(t *testing.T) {
	e := newEnvironment(t)
	ctx := context.Background()

	e.write(t, "/script", "echo first\n\nmissing\necho second\nexit\necho never\n")

	// the standard slots of the root task are taken over by the script
	require.NoError(t, e.standard.Close(ctx))
	input, err := e.vfs.OpenStandard(ctx, root, data.MustPath("/script"), data.MustPath("/out"), data.MustPath("/err"))
	require.NoError(t, err)
	defer func() { _ = input.Close(ctx) }()

	sh, err := shell.New(e.vfs, e.tasks, shell.WithPrompt(""))
	require.NoError(t, err)
	require.NoError(t, builtin.Register(sh))

	require.NoError(t, sh.Run(ctx, input))
	assert.Equal(t, "first\nsecond\n", e.read(t, "/out"))
	assert.Contains(t, e.read(t, "/err"), "missing: command not found")
}
