package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/habitbell/internal/constants"
	"github.com/julianstephens/habitbell/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

var (
	// ErrLocked is returned when another live habitbell process holds the lock
	ErrLocked = errors.New("another habitbell scheduler is running")
	// ErrMalformed is returned when the lockfile cannot be parsed
	ErrMalformed = errors.New("lockfile is malformed")
)

// Info is what a lockfile records: the owner's pid and the address it serves on.
type Info struct {
	PID  int
	Addr string
}

// Lock guards the scheduling process; only one may run against a store.
type Lock struct {
	path string
	pid  int
}

func Path(dir string) string {
	return filepath.Join(dir, constants.LockfileName)
}

// Acquire takes the lock in dir. A lockfile left behind by a dead process is
// replaced; one held by a live habitbell process yields ErrLocked.
func Acquire(dir, addr string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := Path(dir)
	pid := getpidFunc()
	content := fmt.Sprintf("%d|%s", pid, addr)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path, pid: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		info, rerr := Read(dir)
		if rerr == nil && isAlive(info.PID) {
			return nil, fmt.Errorf("%w (pid %d, %s)", ErrLocked, info.PID, info.Addr)
		}
		logger.Warn("Removing stale lockfile", "path", path, "error", rerr)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: lost the race for %s", ErrLocked, path)
}

// Read parses the lockfile in dir.
func Read(dir string) (Info, error) {
	content, err := os.ReadFile(Path(dir))
	if err != nil {
		return Info{}, err
	}

	pidStr, addr, ok := strings.Cut(strings.TrimSpace(string(content)), "|")
	if !ok {
		return Info{}, ErrMalformed
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return Info{}, fmt.Errorf("%w: invalid process ID %q", ErrMalformed, pidStr)
	}
	return Info{PID: pid, Addr: addr}, nil
}

// Running reports whether a live habitbell process holds the lock in dir.
func Running(dir string) (Info, bool) {
	info, err := Read(dir)
	if err != nil {
		return Info{}, false
	}
	return info, isAlive(info.PID)
}

func isAlive(pid int) bool {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}

// Release removes the lockfile if it still belongs to this process.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	info, err := Read(filepath.Dir(l.path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.PID != l.pid {
		return nil
	}
	return os.Remove(l.path)
}
