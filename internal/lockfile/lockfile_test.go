package lockfile

import (
	"errors"
	"os"
	"testing"

	"github.com/mitchellh/go-ps"
)

type fakeProcess struct {
	pid int
	exe string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.exe }

func withProcesses(t *testing.T, self int, running map[int]string) {
	t.Helper()
	origFind, origPid := findProcessFunc, getpidFunc
	t.Cleanup(func() {
		findProcessFunc, getpidFunc = origFind, origPid
	})
	getpidFunc = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := running[pid]
		if !ok {
			return nil, nil
		}
		return fakeProcess{pid: pid, exe: exe}, nil
	}
}

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	withProcesses(t, 100, map[int]string{100: "habitbell"})

	lock, err := Acquire(dir, "127.0.0.1:8085")
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	info, running := Running(dir)
	if !running || info.PID != 100 || info.Addr != "127.0.0.1:8085" {
		t.Errorf("Running() = %+v, %v", info, running)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if _, err := os.Stat(Path(dir)); !os.IsNotExist(err) {
		t.Errorf("lockfile still present after Release: %v", err)
	}
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("200|127.0.0.1:9000"), 0600); err != nil {
		t.Fatal(err)
	}
	withProcesses(t, 100, map[int]string{200: "habitbell"})

	if _, err := Acquire(dir, ""); !errors.Is(err, ErrLocked) {
		t.Errorf("Acquire() error = %v, want ErrLocked", err)
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		running map[int]string
	}{
		{"dead process", "200|", map[int]string{}},
		{"pid reused by another program", "200|", map[int]string{200: "bash"}},
		{"malformed", "garbage", map[int]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(Path(dir), []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			withProcesses(t, 100, tt.running)

			lock, err := Acquire(dir, "")
			if err != nil {
				t.Fatalf("Acquire() failed: %v", err)
			}
			info, err := Read(dir)
			if err != nil || info.PID != 100 {
				t.Errorf("Read() = %+v, %v; want pid 100", info, err)
			}
			_ = lock.Release()
		})
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	dir := t.TempDir()
	withProcesses(t, 100, map[int]string{})

	lock, err := Acquire(dir, "")
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	// Another process took over after we were presumed dead
	if err := os.WriteFile(Path(dir), []byte("300|"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Errorf("foreign lockfile was removed: %v", err)
	}
}

func TestReadMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("abc|x"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(dir); !errors.Is(err, ErrMalformed) {
		t.Errorf("Read() error = %v, want ErrMalformed", err)
	}
}
