package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// call records one Runner invocation.
type call struct {
	name string
	args []string
}

// fakeRunner records invocations and answers them with handler. Without a
// handler every command succeeds and, like a compiler, creates the file
// named after -o.
type fakeRunner struct {
	fs      afero.Fs
	calls   []call
	handler func(ctx context.Context, name string, args []string) (Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.handler != nil {
		return f.handler(ctx, name, args)
	}
	f.touchOutput(args)
	return Result{}, nil
}

// touchOutput writes the -o target as a real compiler would.
func (f *fakeRunner) touchOutput(args []string) {
	if f.fs == nil {
		return
	}
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			_ = afero.WriteFile(f.fs, args[i+1], []byte("built by "+strings.Join(args, " ")), 0o755)
		}
	}
}

// isLink reports whether args are a link invocation.
func isLink(args []string) bool {
	for _, a := range args {
		if a == "-shared" {
			return true
		}
	}
	return false
}

// failingFs rejects writes under prefix.
type failingFs struct {
	afero.Fs
	prefix string
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.HasPrefix(name, f.prefix) && flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f failingFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

// failingRenameFs rejects moving a staged temporary onto target. Moving a
// replaced file back is allowed.
type failingRenameFs struct {
	afero.Fs
	target string
}

func (f failingRenameFs) Rename(oldname, newname string) error {
	if newname == f.target && strings.HasPrefix(filepath.Base(oldname), ".") && !strings.Contains(oldname, ".pgext-replaced-") {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return f.Fs.Rename(oldname, newname)
}

