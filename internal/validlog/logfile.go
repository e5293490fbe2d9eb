// Package validlog keeps the per-file validation logs and the history of
// validation runs.
package validlog

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// NotValidatedDir is the log_dir subdirectory holding logs of failed runs.
const NotValidatedDir = "not_validated"

// Hash returns the hex md5 of the file at path.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "validlog: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "validlog: hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LogPath is where the log of a passing validation of dataPath is written.
func LogPath(logDir, dataPath string) string {
	return filepath.Join(logDir, filepath.Base(dataPath)+".valid.log")
}

// FailedLogPath is where the log of a failing validation is written.
func FailedLogPath(logDir, dataPath string) string {
	return filepath.Join(logDir, NotValidatedDir, filepath.Base(dataPath)+".valid.log")
}

// HashCheck reports whether a file changed since its last logged validation.
type HashCheck struct {
	Hash      string `json:"hash"`
	Unchanged bool   `json:"unchanged"`
}

// CheckHash hashes dataPath and compares it to the first line of its log.
func CheckHash(logDir, dataPath string) (*HashCheck, error) {
	sum, err := Hash(dataPath)
	if err != nil {
		return nil, err
	}
	hc := &HashCheck{Hash: sum}

	for _, p := range []string{LogPath(logDir, dataPath), FailedLogPath(logDir, dataPath)} {
		line, err := firstLine(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		hc.Unchanged = line == sum
		break
	}
	return hc, nil
}

// PriorCheck summarises the most recent validation log of a file.
type PriorCheck struct {
	Pass    bool   `json:"pass"`
	Errors  int    `json:"errors"`
	Message string `json:"message"`
}

// CheckPrior counts failure lines in the previous log of dataPath. Lines
// starting with ✗ always count; "Valid: FALSE" counts when strict. A clean log
// found under not_validated is removed.
func CheckPrior(logDir, dataPath string, strict bool) (*PriorCheck, error) {
	for _, p := range []string{LogPath(logDir, dataPath), FailedLogPath(logDir, dataPath)} {
		n, err := countFailures(p, strict)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return &PriorCheck{Errors: n, Message: "Errors found in the prior validation."}, nil
		}
		if p == FailedLogPath(logDir, dataPath) {
			if err := os.Remove(p); err != nil {
				return nil, eris.Wrapf(err, "validlog: remove %s", p)
			}
		}
		return &PriorCheck{Pass: true, Message: "No errors found in the last validation."}, nil
	}
	return &PriorCheck{Pass: true, Message: "No prior log file exists."}, nil
}

// Write stores the hash line followed by body under the passing or failing
// location, and removes any log left at the other one. It returns the path
// written.
func Write(logDir, dataPath, hash string, valid bool, body string) (string, error) {
	path, stale := LogPath(logDir, dataPath), FailedLogPath(logDir, dataPath)
	if !valid {
		path, stale = stale, path
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "validlog: create %s", filepath.Dir(path))
	}

	content := hash + "\n" + strings.TrimRight(body, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", eris.Wrapf(err, "validlog: write %s", path)
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", eris.Wrapf(err, "validlog: remove %s", stale)
	}
	return path, nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", eris.Wrapf(sc.Err(), "validlog: read %s", path)
}

func countFailures(path string, strict bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "✗") {
			n++
		}
		if strict && strings.HasPrefix(line, "Valid: FALSE") {
			n++
		}
	}
	return n, eris.Wrapf(sc.Err(), "validlog: read %s", path)
}
